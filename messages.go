/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

// Messages coming from clients. Type selects the variant; unknown types are
// dropped at the read pump.
type ClientMessage struct {
	Type   string `json:"type"`             // "join", "start", "clue", "guess", "state", "restart"
	Name   string `json:"name,omitempty"`   // join
	Avatar string `json:"avatar,omitempty"` // join
	Text   string `json:"text,omitempty"`   // clue / guess
}

// SessionInfoMessage is sent immediately on connect so the client knows
// whether this cookie is already a member and what role it holds.
type SessionInfoMessage struct {
	Type       string `json:"type"` // "session_info"
	RoomID     string `json:"room_id"`
	IsExisting bool   `json:"is_existing"`
	IsHost     bool   `json:"is_host"`
	IsSpeaker  bool   `json:"is_speaker"`
	Name       string `json:"name,omitempty"`
}

// PlayerState is a player's public view, embedded in snapshots.
type PlayerState struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Avatar      string  `json:"avatar,omitempty"`
	Team        string  `json:"team,omitempty"`
	Score       float64 `json:"score"`
	GuessesUsed int     `json:"guesses_used"`
	IsHost      bool    `json:"is_host"`
}

// RoomStateMessage is the authoritative snapshot: everything a (re)joining
// client needs to reconcile its view, including which players have already
// used their guess for the current clue so a reconnect cannot double-guess.
type RoomStateMessage struct {
	Type            string             `json:"type"` // "room_state"
	RoomID          string             `json:"room_id"`
	Phase           string             `json:"phase"`
	Round           int                `json:"round"`
	MaxRounds       int                `json:"max_rounds"`
	Players         []PlayerState      `json:"players"`
	SpeakerID       string             `json:"speaker_id,omitempty"`
	ClueCount       int                `json:"clue_count"`
	ClueLimit       int                `json:"clue_limit"`
	MaxGuesses      int                `json:"max_guesses"`
	Clues           []string           `json:"clues,omitempty"`
	GuessedThisClue []string           `json:"guessed_this_clue,omitempty"`
	TeamScores      map[string]float64 `json:"team_scores,omitempty"`
}

// CardMessage is sent only to the current speaker.
type CardMessage struct {
	Type      string   `json:"type"` // "card"
	Secret    string   `json:"secret"`
	Forbidden []string `json:"forbidden"`
}

// ClueMessage broadcasts an accepted clue to guessers.
type ClueMessage struct {
	Type        string `json:"type"` // "clue"
	Text        string `json:"text"`
	ClueCount   int    `json:"clue_count"`
	SpeakerID   string `json:"speaker_id"`
	SpeakerName string `json:"speaker_name"`
}

// ForbiddenMessage reports a violation: which words were uttered and the
// penalty applied to the speaker. The round continues.
type ForbiddenMessage struct {
	Type       string   `json:"type"` // "forbidden"
	Violations []string `json:"violations"`
	Penalty    float64  `json:"penalty"`
}

// GuessResultMessage informs everyone about a guess outcome.
type GuessResultMessage struct {
	Type        string `json:"type"` // "guess_result"
	Correct     bool   `json:"correct"`
	GuesserID   string `json:"guesser_id"`
	GuesserName string `json:"guesser_name"`
	Text        string `json:"text"`
	Message     string `json:"message,omitempty"`
}

// RoundEndedMessage summarizes a resolved round.
type RoundEndedMessage struct {
	Type          string  `json:"type"` // "round_ended"
	Round         int     `json:"round"`
	Secret        string  `json:"secret"`
	SpeakerID     string  `json:"speaker_id"`
	SpeakerName   string  `json:"speaker_name"`
	WinnerID      string  `json:"winner_id,omitempty"`
	WinnerName    string  `json:"winner_name,omitempty"`
	SpeakerPoints float64 `json:"speaker_points"`
	GuesserPoints float64 `json:"guesser_points"`
	CluesUsed     int     `json:"clues_used"`
	Forced        bool    `json:"forced"`
}

// GameEndedMessage carries the frozen leaderboard.
type GameEndedMessage struct {
	Type        string             `json:"type"` // "game_ended"
	Leaderboard []PlayerState      `json:"leaderboard"`
	TeamScores  map[string]float64 `json:"team_scores,omitempty"`
}

// ErrorMessage is sent only to the client whose command was rejected.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

func errorMessage(err error) ErrorMessage {
	return ErrorMessage{
		Type:    "error",
		Message: err.Error(),
	}
}

func playerState(p *player, isHost bool) PlayerState {
	return PlayerState{
		ID:          p.ID,
		Name:        p.Name,
		Avatar:      p.Avatar,
		Team:        p.Team,
		Score:       p.Score,
		GuessesUsed: p.GuessesUsed,
		IsHost:      isHost,
	}
}

// snapshot builds the authoritative room state message. It never includes
// the active card; that is delivered to the speaker alone via CardMessage.
func (r *room) snapshot() RoomStateMessage {
	players := make([]PlayerState, 0, len(r.players))
	for i, p := range r.players {
		players = append(players, playerState(p, i == 0))
	}

	guessed := make([]string, 0, len(r.guessedThisClue))
	for _, p := range r.players {
		if r.guessedThisClue[p.ID] {
			guessed = append(guessed, p.ID)
		}
	}

	msg := RoomStateMessage{
		Type:            "room_state",
		RoomID:          r.id,
		Phase:           string(r.phase),
		Round:           r.round,
		MaxRounds:       r.rules.maxRounds,
		Players:         players,
		ClueCount:       r.clueCount,
		ClueLimit:       r.rules.clueLimit,
		MaxGuesses:      r.rules.maxGuesses,
		Clues:           r.clues,
		GuessedThisClue: guessed,
		TeamScores:      r.teamScores(),
	}

	if sp := r.speaker(); sp != nil {
		msg.SpeakerID = sp.ID
	}

	return msg
}

func (r *room) cardMessage() *CardMessage {
	if r.card == nil {
		return nil
	}

	return &CardMessage{
		Type:      "card",
		Secret:    r.card.Secret,
		Forbidden: r.card.Forbidden,
	}
}

func (r *room) gameEndedMessage() GameEndedMessage {
	ranked := r.leaderboard()

	board := make([]PlayerState, 0, len(ranked))
	for _, p := range ranked {
		board = append(board, playerState(p, r.isHost(p.ID)))
	}

	return GameEndedMessage{
		Type:        "game_ended",
		Leaderboard: board,
		TeamScores:  r.teamScores(),
	}
}

func roundEndedMessage(s *roundSummary) RoundEndedMessage {
	return RoundEndedMessage{
		Type:          "round_ended",
		Round:         s.Round,
		Secret:        s.Secret,
		SpeakerID:     s.SpeakerID,
		SpeakerName:   s.SpeakerName,
		WinnerID:      s.WinnerID,
		WinnerName:    s.WinnerName,
		SpeakerPoints: s.SpeakerPoints,
		GuesserPoints: s.GuesserPoints,
		CluesUsed:     s.CluesUsed,
		Forced:        s.Forced,
	}
}
