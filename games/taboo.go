// Package games holds design notes for the games served by this module.
package games

// One player per round is the speaker; everyone else guesses
// The speaker privately sees a card: a secret word plus forbidden words
// The speaker gives short clues without saying the secret or forbidden words
// Saying one anyway costs points, but the round continues
// Each clue gives every guesser one shot; wrong guesses burn a per-round allotment
// A correct guess scores both the speaker and the guesser, with bonuses for
// unused clues and guesses
// The speaker rotates through the join order; fixed round count, then a leaderboard

// Implementation details:
// - Use websockets per room to fan out state updates
// - Identify players by cookie on first connection, so reconnects reattach
// - Screen clues with fuzzy + phonetic matching so near-misses still count
// - Card decks are embedded, reshuffled when exhausted

// How to play
// - Open /taboo to get a fresh room, share the link or QR code
// - First player to join is host and the first speaker
// - Host starts the game once at least two players have joined
