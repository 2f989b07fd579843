/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

type phase string

const (
	phaseLobby    phase = "lobby"
	phaseSpeaker  phase = "speaker"
	phaseGuessing phase = "guessing"
	phaseGameOver phase = "game_over"
)

// Rejected commands. These never mutate room state, so resubmitting one
// always yields the same rejection.
var (
	errRoomFull       = errors.New("the room is full")
	errGameInProgress = errors.New("the game has already started")
	errNameTaken      = errors.New("that name is already taken in this room")
	errNotInRoom      = errors.New("you are not a member of this room")
	errNotHost        = errors.New("only the host can do that")
	errNotSpeaker     = errors.New("only the current speaker can give clues")
	errSpeakerGuess   = errors.New("the speaker cannot guess their own word")
	errWrongPhase     = errors.New("that action is not allowed right now")
	errEmptyText      = errors.New("nothing to submit")
	errDuplicateClue  = errors.New("that clue has already been given this round")
	errClueLimit      = errors.New("the clue limit for this round has been reached")
	errDuplicateGuess = errors.New("that guess has already been tried this round")
	errAlreadyGuessed = errors.New("you have already guessed for this clue")
	errNoGuessesLeft  = errors.New("you have no guesses left this round")
	errDeckEmpty      = errors.New("no cards are available")
)

type gameRules struct {
	minPlayers int
	maxPlayers int
	maxRounds  int
	clueLimit  int
	maxGuesses int
}

func rulesFromConfig(cfg *Config) gameRules {
	return gameRules{
		minPlayers: cfg.minPlayers,
		maxPlayers: cfg.maxPlayers,
		maxRounds:  cfg.maxRounds,
		clueLimit:  cfg.clueLimit,
		maxGuesses: cfg.maxGuesses,
	}
}

// player is a room member. GuessesUsed counts wrong guesses in the current
// round and resets every round.
type player struct {
	ID          string
	Name        string
	Avatar      string
	Team        string
	Score       float64
	GuessesUsed int
}

// room owns all state for one game: membership (whose order defines both
// host privilege and speaker rotation), the active card, and the
// round-scoped bookkeeping that is cleared at every round boundary.
// Rooms are not safe for concurrent use; the owning hub serializes access.
type room struct {
	id    string
	rules gameRules
	match *matcher
	deck  *cardDeck

	phase      phase
	players    []*player
	speakerIdx int
	round      int
	card       *card

	// Round-scoped state.
	clueCount       int
	clues           []string
	cluesGiven      map[string]bool
	guessesTried    map[string]bool
	guessedThisClue map[string]bool
}

func newRoom(id string, rules gameRules, match *matcher, deck *cardDeck) *room {
	r := &room{
		id:    id,
		rules: rules,
		match: match,
		deck:  deck,
		phase: phaseLobby,
	}
	r.resetRoundState()

	return r
}

// clueResult reports the outcome of an accepted clue submission. A clue
// that uttered a forbidden word carries the violations and penalty instead
// of advancing the round.
type clueResult struct {
	Text       string
	ClueCount  int
	Violations []string
	Penalty    float64
}

// roundSummary describes a resolved round. WinnerID is empty when the round
// was force-resolved with no correct guess.
type roundSummary struct {
	Round         int
	Secret        string
	SpeakerID     string
	SpeakerName   string
	WinnerID      string
	WinnerName    string
	SpeakerPoints float64
	GuesserPoints float64
	CluesUsed     int
	Forced        bool
}

// guessResult reports the outcome of an accepted guess. Summary is non-nil
// when the guess resolved the round.
type guessResult struct {
	Correct   bool
	GuesserID string
	Text      string
	Summary   *roundSummary
	GameOver  bool
}

func (r *room) memberIndex(id string) int {
	for i, p := range r.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *room) playerByID(id string) *player {
	if i := r.memberIndex(id); i >= 0 {
		return r.players[i]
	}
	return nil
}

// host returns the room's creator: the player at index 0.
func (r *room) host() *player {
	if len(r.players) == 0 {
		return nil
	}
	return r.players[0]
}

func (r *room) isHost(id string) bool {
	h := r.host()
	return h != nil && h.ID == id
}

// speaker returns the current speaker, or nil outside an active round.
func (r *room) speaker() *player {
	if r.phase != phaseSpeaker && r.phase != phaseGuessing {
		return nil
	}
	if r.speakerIdx < 0 || r.speakerIdx >= len(r.players) {
		return nil
	}
	return r.players[r.speakerIdx]
}

func (r *room) resetRoundState() {
	r.clueCount = 0
	r.clues = nil
	r.cluesGiven = make(map[string]bool)
	r.guessesTried = make(map[string]bool)
	r.guessedThisClue = make(map[string]bool)

	for _, p := range r.players {
		p.GuessesUsed = 0
	}
}

// join adds a player, or reattaches one whose ID is already a member
// (reconnects present the same cookie). New members are only admitted in
// the lobby, and are placed on whichever team is currently smaller.
func (r *room) join(id, name, avatar string) (*player, error) {
	if existing := r.playerByID(id); existing != nil {
		return existing, nil
	}

	if r.phase != phaseLobby {
		return nil, errGameInProgress
	}
	if len(r.players) >= r.rules.maxPlayers {
		return nil, errRoomFull
	}
	if normalizeText(name) == "" {
		return nil, errEmptyText
	}
	for _, p := range r.players {
		if normalizeText(p.Name) == normalizeText(name) {
			return nil, errNameTaken
		}
	}

	p := &player{
		ID:     id,
		Name:   name,
		Avatar: avatar,
		Team:   r.smallerTeam(),
	}
	r.players = append(r.players, p)

	return p, nil
}

func (r *room) smallerTeam() string {
	var a, b int
	for _, p := range r.players {
		switch p.Team {
		case "A":
			a++
		case "B":
			b++
		}
	}
	if b < a {
		return "B"
	}
	return "A"
}

// start begins the game: host-only, lobby-only, minimum player count.
func (r *room) start(id string) error {
	if r.memberIndex(id) < 0 {
		return errNotInRoom
	}
	if !r.isHost(id) {
		return errNotHost
	}
	if r.phase != phaseLobby {
		return errGameInProgress
	}
	if len(r.players) < r.rules.minPlayers {
		return fmt.Errorf("at least %d players are required to start", r.rules.minPlayers)
	}

	r.deck.refill()
	r.round = 1
	r.speakerIdx = 0
	r.resetRoundState()
	if err := r.drawCard(); err != nil {
		return err
	}
	r.phase = phaseSpeaker

	return nil
}

func (r *room) drawCard() error {
	c, ok := r.deck.draw()
	if !ok {
		return errDeckEmpty
	}
	r.card = &c

	return nil
}

// submitClue validates and applies a speaker's clue. A clue that utters the
// secret or a forbidden word costs the speaker the violation penalty but
// does not advance the clue count or change phase; a clean clue opens the
// guessing phase.
func (r *room) submitClue(ctx context.Context, id, text string) (*clueResult, error) {
	if r.memberIndex(id) < 0 {
		return nil, errNotInRoom
	}
	if r.phase != phaseSpeaker {
		return nil, errWrongPhase
	}
	sp := r.speaker()
	if sp == nil || sp.ID != id {
		return nil, errNotSpeaker
	}

	normalized := normalizeText(text)
	if normalized == "" {
		return nil, errEmptyText
	}
	if r.cluesGiven[normalized] {
		return nil, errDuplicateClue
	}
	if r.clueCount >= r.rules.clueLimit {
		return nil, errClueLimit
	}

	if violations := r.match.clueViolations(ctx, text, *r.card); len(violations) > 0 {
		sp.Score -= violationPenalty

		return &clueResult{
			Text:       text,
			ClueCount:  r.clueCount,
			Violations: violations,
			Penalty:    violationPenalty,
		}, nil
	}

	r.cluesGiven[normalized] = true
	r.clues = append(r.clues, text)
	r.clueCount++
	r.guessedThisClue = make(map[string]bool)
	r.phase = phaseGuessing

	return &clueResult{
		Text:      text,
		ClueCount: r.clueCount,
	}, nil
}

// submitGuess validates and applies a guess. Each guesser gets one attempt
// per clue and a per-round allotment of wrong guesses; a correct guess
// resolves the round, and a wrong one hands control back to the speaker
// unless every remaining guesser is out of attempts.
func (r *room) submitGuess(ctx context.Context, id, text string) (*guessResult, error) {
	p := r.playerByID(id)
	if p == nil {
		return nil, errNotInRoom
	}
	if r.phase != phaseGuessing {
		return nil, errWrongPhase
	}
	if sp := r.speaker(); sp != nil && sp.ID == id {
		return nil, errSpeakerGuess
	}

	normalized := normalizeText(text)
	if normalized == "" {
		return nil, errEmptyText
	}
	if r.guessedThisClue[id] {
		return nil, errAlreadyGuessed
	}
	if p.GuessesUsed >= r.rules.maxGuesses {
		return nil, errNoGuessesLeft
	}
	if r.guessesTried[normalized] {
		return nil, errDuplicateGuess
	}

	result := &guessResult{
		GuesserID: id,
		Text:      text,
	}

	if r.match.guessMatches(ctx, text, r.card.Secret) {
		result.Correct = true
		result.Summary = r.resolveRound(p)
		result.GameOver = r.phase == phaseGameOver

		return result, nil
	}

	r.guessesTried[normalized] = true
	r.guessedThisClue[id] = true
	p.GuessesUsed++

	switch {
	case r.guessersExhausted():
		result.Summary = r.resolveRound(nil)
		result.GameOver = r.phase == phaseGameOver
	case r.clueCount >= r.rules.clueLimit:
		// The speaker cannot give another clue, so remaining guessers keep
		// the floor to use their shot at the final one.
	default:
		r.phase = phaseSpeaker
	}

	return result, nil
}

// guessersExhausted is re-derived from current membership on every wrong
// guess, so players leaving mid-round never leave the round stuck waiting
// on a departed guesser's attempts.
func (r *room) guessersExhausted() bool {
	for i, p := range r.players {
		if i == r.speakerIdx {
			continue
		}
		if p.GuessesUsed < r.rules.maxGuesses && !r.atClueCeiling(p) {
			return false
		}
	}
	return true
}

// atClueCeiling reports whether a guesser has no further attempts this
// round because the speaker cannot give another clue and the guesser has
// already used their shot at the final one.
func (r *room) atClueCeiling(p *player) bool {
	return r.clueCount >= r.rules.clueLimit && r.guessedThisClue[p.ID]
}

// resolveRound applies scoring for the finished round (winner may be nil
// on a forced resolution), rotates the speaker over current membership,
// and either opens the next round or ends the game.
func (r *room) resolveRound(winner *player) *roundSummary {
	sp := r.speaker()

	summary := &roundSummary{
		Round:     r.round,
		Secret:    r.card.Secret,
		CluesUsed: r.clueCount,
		Forced:    winner == nil,
	}
	if sp != nil {
		summary.SpeakerID = sp.ID
		summary.SpeakerName = sp.Name
	}

	if winner != nil {
		speakerPts, guesserPts := basePoints(r.clueCount)
		speakerPts += speakerBonus(r.clueCount, r.rules.clueLimit)
		guesserPts += guesserBonus(winner.GuessesUsed, r.rules.maxGuesses)

		if sp != nil {
			sp.Score += speakerPts
		}
		winner.Score += guesserPts

		summary.WinnerID = winner.ID
		summary.WinnerName = winner.Name
		summary.SpeakerPoints = speakerPts
		summary.GuesserPoints = guesserPts
	}

	if len(r.players) > 0 {
		r.speakerIdx = (r.speakerIdx + 1) % len(r.players)
	}
	r.round++

	if r.round > r.rules.maxRounds {
		r.phase = phaseGameOver
		r.card = nil
		r.resetRoundState()

		return summary
	}

	r.resetRoundState()
	if err := r.drawCard(); err != nil {
		// The deck refills itself on exhaustion, so this only happens with
		// an empty card list; end the game rather than stall it.
		r.phase = phaseGameOver
		r.card = nil

		return summary
	}
	r.phase = phaseSpeaker

	return summary
}

// restart returns a finished game to the lobby, keeping membership and
// team assignments but clearing scores and round state.
func (r *room) restart(id string) error {
	if r.memberIndex(id) < 0 {
		return errNotInRoom
	}
	if !r.isHost(id) {
		return errNotHost
	}
	if r.phase != phaseGameOver {
		return errWrongPhase
	}

	for _, p := range r.players {
		p.Score = 0
	}
	r.round = 0
	r.card = nil
	r.phase = phaseLobby
	r.resetRoundState()

	return nil
}

// removePlayer drops a member, keeping the speaker index pointed at the
// same player where possible. Reports whether anything was removed and
// whether the room is now empty.
func (r *room) removePlayer(id string) (removed, empty bool) {
	idx := r.memberIndex(id)
	if idx < 0 {
		return false, len(r.players) == 0
	}

	r.players = append(r.players[:idx], r.players[idx+1:]...)
	delete(r.guessedThisClue, id)

	if len(r.players) == 0 {
		return true, true
	}

	if idx < r.speakerIdx {
		r.speakerIdx--
	}
	if r.speakerIdx >= len(r.players) {
		r.speakerIdx = 0
	}

	return true, false
}

// leaderboard returns players ordered by descending score, ties broken by
// original join order.
func (r *room) leaderboard() []*player {
	ranked := make([]*player, len(r.players))
	copy(ranked, r.players)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}

func (r *room) teamScores() map[string]float64 {
	scores := make(map[string]float64)
	for _, p := range r.players {
		if p.Team != "" {
			scores[p.Team] += p.Score
		}
	}
	return scores
}
