// Taboo Game
//
// One player per round (the speaker) privately sees a secret word and a list
// of forbidden words, and must coax the other players into guessing the
// secret word without saying it or any forbidden word.
//
// Features:
// - WebSockets per room ID: /path/:roomid and /path/:roomid/ws
// - First player to join a room becomes host and first speaker
// - Players identified by cookie (playerID); reconnects reattach and receive
//   an authoritative state snapshot
// - Clues are screened against the card with fuzzy and phonetic matching;
//   a violation costs the speaker points but does not end the round
// - Guessers get one attempt per clue and a per-round allotment of wrong
//   guesses; duplicate clues and guesses are rejected
// - Speaker rotates through the player list round-robin; fixed round count,
//   leaderboard at game end, host can restart into the lobby
// - Rooms auto-reaped after configurable idle timeout, evicted when empty
// - Random 8-char room IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current room, backed by go-qrcode

package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type command struct {
	client *Client
	msg    ClientMessage
}

// Hub pairs one room with its connected clients. A single goroutine drains
// the hub's channels, so room events are processed serially; the mutex
// covers the removal timer and the reaper, which run outside that loop.
type Hub struct {
	id   string
	cfg  *Config
	mgr  *RoomManager
	room *room

	clients  map[*Client]bool
	register chan *Client
	unreg    chan *Client
	commands chan command
	done     chan struct{}
	stopOnce sync.Once

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
}

func newHub(cfg *Config, mgr *RoomManager, roomID string) *Hub {
	now := time.Now()

	judge := newSemanticJudge(cfg.judgeURL, cfg.judgeTimeout)

	return &Hub{
		id:         roomID,
		cfg:        cfg,
		mgr:        mgr,
		room:       newRoom(roomID, rulesFromConfig(cfg), newMatcher(cfg.similarity, judge), newCardDeck(cfg)),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		commands:   make(chan command),
		done:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case c := <-h.register:
			h.handleRegister(c)

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			playerID := c.playerID
			isMember := h.room.memberIndex(playerID) >= 0
			h.mu.Unlock()

			if isMember {
				go h.scheduleRemoval(playerID, h.cfg.playerTimeout)
			}

		case cmd := <-h.commands:
			switch cmd.msg.Type {
			case "join":
				h.handleJoin(cmd)
			case "start":
				h.handleStart(cmd)
			case "clue":
				h.handleClue(cmd)
			case "guess":
				h.handleGuess(cmd)
			case "state":
				h.handleState(cmd)
			case "restart":
				h.handleRestart(cmd)
			}
		}
	}
}

// handleRegister attaches a new connection. A cookie already known to the
// room is a reconnect: it immediately gets the authoritative snapshot, and
// the speaker also gets their card back.
func (h *Hub) handleRegister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()
	h.clients[c] = true

	member := h.room.playerByID(c.playerID)
	sp := h.room.speaker()
	isSpeaker := member != nil && sp != nil && sp.ID == c.playerID

	info := SessionInfoMessage{
		Type:       "session_info",
		RoomID:     h.id,
		IsExisting: member != nil,
		IsHost:     member != nil && h.room.isHost(c.playerID),
		IsSpeaker:  isSpeaker,
	}
	if member != nil {
		info.Name = member.Name
	}
	h.sendToClientLocked(c, info)

	if member != nil {
		h.sendToClientLocked(c, h.room.snapshot())
		if isSpeaker {
			if card := h.room.cardMessage(); card != nil {
				h.sendToClientLocked(c, *card)
			}
		}
	}
}

// handleJoin processes "join" messages. The first join of a fresh room
// makes the caller host and first speaker.
func (h *Hub) handleJoin(cmd command) {
	c := cmd.client

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if existing := h.room.playerByID(c.playerID); existing != nil {
		h.sendToClientLocked(c, h.room.snapshot())
		return
	}

	if roomID, ok := h.mgr.roomFor(c.playerID); ok && roomID != h.id {
		h.sendToClientLocked(c, errorMessage(errInAnotherRoom))
		return
	}

	p, err := h.room.join(c.playerID, strings.TrimSpace(cmd.msg.Name), cmd.msg.Avatar)
	if err != nil {
		h.sendToClientLocked(c, errorMessage(err))
		return
	}

	if err := h.mgr.bindPlayer(c.playerID, h.id); err != nil {
		h.room.removePlayer(c.playerID)
		h.sendToClientLocked(c, errorMessage(err))
		return
	}

	logf(h.cfg, "GAMES: Player %q joined %s", p.Name, h.id)

	// Role may have changed by joining: the first join makes the caller host.
	h.sendToClientLocked(c, SessionInfoMessage{
		Type:       "session_info",
		RoomID:     h.id,
		IsExisting: true,
		IsHost:     h.room.isHost(c.playerID),
		Name:       p.Name,
	})

	h.broadcastLocked(h.room.snapshot())
}

func (h *Hub) handleStart(cmd command) {
	c := cmd.client

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if err := h.room.start(c.playerID); err != nil {
		h.sendToClientLocked(c, errorMessage(err))
		return
	}

	logf(h.cfg, "GAMES: Game started in %s with %d players", h.id, len(h.room.players))

	h.broadcastLocked(h.room.snapshot())
	h.sendCardToSpeakerLocked()
}

func (h *Hub) handleClue(cmd command) {
	c := cmd.client

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	result, err := h.room.submitClue(context.Background(), c.playerID, cmd.msg.Text)
	if err != nil {
		h.sendToClientLocked(c, errorMessage(err))
		return
	}

	if len(result.Violations) > 0 {
		logf(h.cfg, "GAMES: Forbidden word in %s: %v", h.id, result.Violations)

		h.broadcastLocked(ForbiddenMessage{
			Type:       "forbidden",
			Violations: result.Violations,
			Penalty:    result.Penalty,
		})
		h.broadcastLocked(h.room.snapshot())
		return
	}

	sp := h.room.speaker()

	clue := ClueMessage{
		Type:      "clue",
		Text:      result.Text,
		ClueCount: result.ClueCount,
	}
	if sp != nil {
		clue.SpeakerID = sp.ID
		clue.SpeakerName = sp.Name
	}
	h.broadcastExceptLocked(c.playerID, clue)
	h.broadcastLocked(h.room.snapshot())
}

func (h *Hub) handleGuess(cmd command) {
	c := cmd.client

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	result, err := h.room.submitGuess(context.Background(), c.playerID, cmd.msg.Text)
	if err != nil {
		h.sendToClientLocked(c, errorMessage(err))
		return
	}

	guesser := h.room.playerByID(c.playerID)
	guesserName := c.playerID
	if guesser != nil {
		guesserName = guesser.Name
	}

	text := guesserName + " guessed wrong."
	if result.Correct {
		text = guesserName + " guessed the word!"
	}
	logf(h.cfg, "GAMES: %q guessed %q in %s (correct: %t)", guesserName, result.Text, h.id, result.Correct)

	h.broadcastLocked(GuessResultMessage{
		Type:        "guess_result",
		Correct:     result.Correct,
		GuesserID:   result.GuesserID,
		GuesserName: guesserName,
		Text:        result.Text,
		Message:     text,
	})

	if result.Summary != nil {
		h.broadcastLocked(roundEndedMessage(result.Summary))

		if result.GameOver {
			logf(h.cfg, "GAMES: Game over in %s", h.id)
			h.broadcastLocked(h.room.gameEndedMessage())
		} else {
			h.sendCardToSpeakerLocked()
		}
	}

	h.broadcastLocked(h.room.snapshot())
}

func (h *Hub) handleState(cmd command) {
	c := cmd.client

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	h.sendToClientLocked(c, h.room.snapshot())

	if sp := h.room.speaker(); sp != nil && sp.ID == c.playerID {
		if card := h.room.cardMessage(); card != nil {
			h.sendToClientLocked(c, *card)
		}
	}
}

func (h *Hub) handleRestart(cmd command) {
	c := cmd.client

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if err := h.room.restart(c.playerID); err != nil {
		h.sendToClientLocked(c, errorMessage(err))
		return
	}

	logf(h.cfg, "GAMES: Game reset to lobby in %s", h.id)

	h.broadcastLocked(h.room.snapshot())
}

// sendCardToSpeakerLocked delivers the active card to the current speaker's
// connections only.
func (h *Hub) sendCardToSpeakerLocked() {
	sp := h.room.speaker()
	card := h.room.cardMessage()
	if sp == nil || card == nil {
		return
	}

	for client := range h.clients {
		if client.playerID == sp.ID {
			h.sendToClientLocked(client, *card)
		}
	}
}

func (h *Hub) sendToClientLocked(c *Client, msg any) {
	// Commands can still reference a client whose send channel was already
	// closed by disconnect or eviction; only tracked clients get sends.
	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendToClientLocked(client, msg)
	}
}

func (h *Hub) broadcastExceptLocked(playerID string, msg any) {
	for client := range h.clients {
		if client.playerID == playerID {
			continue
		}
		h.sendToClientLocked(client, msg)
	}
}

// scheduleRemoval waits for d, and if no client with this playerID has
// reconnected, removes that player from the room. A room whose last player
// leaves is evicted from the registry. A removal that hands the speaker role
// to someone else also pushes them the active card.
func (h *Hub) scheduleRemoval(playerID string, d time.Duration) {
	time.Sleep(d)

	h.mu.Lock()

	for client := range h.clients {
		if client.playerID == playerID {
			h.mu.Unlock()
			return
		}
	}

	speakerBefore := ""
	if sp := h.room.speaker(); sp != nil {
		speakerBefore = sp.ID
	}

	removed, empty := h.room.removePlayer(playerID)
	if removed {
		h.lastActive = time.Now()
	}

	speakerChanged := false
	if sp := h.room.speaker(); removed && sp != nil && sp.ID != speakerBefore {
		speakerChanged = true
	}
	snapshot := h.room.snapshot()

	h.mu.Unlock()

	if !removed {
		return
	}

	h.mgr.releasePlayer(playerID)
	logf(h.cfg, "GAMES: Player %s removed from %s", playerID, h.id)

	if empty {
		h.mgr.evict(h)
		return
	}

	h.mu.Lock()
	h.broadcastLocked(snapshot)
	if speakerChanged {
		h.sendCardToSpeakerLocked()
	}
	h.mu.Unlock()
}

// memberIDs returns the IDs of the room's current players.
func (h *Hub) memberIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.room.players))
	for _, p := range h.room.players {
		ids = append(ids, p.ID)
	}

	return ids
}

// stop shuts the hub down exactly once: run performs the teardown and exits.
func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// closeAll disconnects all clients of this hub. It runs in the hub goroutine
// as the final step of stop, so no send can race the channel closes.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "taboo_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// WebSocket handler that picks the hub based on :roomid
func serveWSForManager(cfg *Config, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if roomID == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)

		hub := rm.getHub(cfg, roomID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "join", "start", "clue", "guess", "state", "restart":
			select {
			case h.commands <- command{client: c, msg: msg}:
			case <-h.done:
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current room URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("roomid")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:roomid/qr; strip trailing "/qr" to get the room URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// redirectNewRoom handles GET /path by generating a new random room ID
// (with server-side collision detection) and redirecting to /path/:roomid.
func redirectNewRoom(cfg *Config, path string, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		roomID := rm.newRoomID()
		logf(cfg, "GAMES: Created room %s/%s", path, roomID)
		http.Redirect(w, r, path+"/"+roomID, http.StatusTemporaryRedirect)
	}
}

// registerTabooGame sets up routes so that:
//   - $path                  → redirects to new random room (8-char ID)
//   - $path/:roomid          → HTML client
//   - $path/:roomid/ws       → WebSocket for that room
//   - $path/:roomid/qr       → PNG QR code for that room URL
func registerTabooGame(cfg *Config, path string, mux *httprouter.Router) {
	rm := newRoomManager(cfg.sessionTimeout)

	// Root path → redirect to new random room
	mux.GET(cfg.prefix+path, redirectNewRoom(cfg, cfg.prefix+path, rm))

	// Per-room client view (HTML)
	mux.GET(cfg.prefix+path+"/:roomid", getIndexHandler(cfg))

	// Shared assets (no roomid in route)
	mux.GET(cfg.prefix+"/assets/taboo/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/taboo/app.js", getJsHandler(cfg))

	// Per-room websocket
	mux.GET(cfg.prefix+path+"/:roomid/ws", serveWSForManager(cfg, rm))

	// Per-room QR code
	mux.GET(cfg.prefix+path+"/:roomid/qr", qrHandler)
}
