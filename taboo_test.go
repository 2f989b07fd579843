/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hubConfig() *Config {
	return &Config{
		clueLimit:     4,
		maxGuesses:    3,
		maxPlayers:    10,
		maxRounds:     2,
		minPlayers:    2,
		playerTimeout: time.Minute,
		similarity:    0.85,
	}
}

// nextMessageAs reads the next message off a client's send channel and
// requires it to be of the given type. Per-client delivery order is
// deterministic, so tests assert exact sequences.
func nextMessageAs[T any](t *testing.T, ch chan any) T {
	t.Helper()

	select {
	case msg, ok := <-ch:
		require.True(t, ok, "send channel closed unexpectedly")
		typed, isType := msg.(T)
		require.True(t, isType, "expected %T, got %#v", typed, msg)
		return typed
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		panic("unreachable")
	}
}

func fakeClient(playerID string) *Client {
	return &Client{
		send:     make(chan any, 64),
		playerID: playerID,
	}
}

// awaitMessageAs reads a client's send channel until a message of the given
// type arrives, discarding anything else along the way.
func awaitMessageAs[T any](t *testing.T, ch chan any) T {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-ch:
			require.True(t, ok, "send channel closed unexpectedly")
			if typed, isType := msg.(T); isType {
				return typed
			}
		case <-deadline:
			t.Fatal("timed out waiting for a message")
			panic("unreachable")
		}
	}
}

// Drives a full hub session over the channels the websocket pumps feed,
// covering join, start, clue fan-out, guessing, reconnect reconciliation,
// and round resolution.
func TestHubSession(t *testing.T) {
	rm := newRoomManager(0)
	cfg := hubConfig()

	hub := rm.getHub(cfg, "testroom")

	// Pin the deck so clues and guesses can be chosen deterministically.
	hub.mu.Lock()
	hub.room.deck = &cardDeck{source: []card{{
		Secret:    "pizza",
		Forbidden: []string{"cheese", "slice", "italy", "pepperoni", "dough"},
	}}}
	hub.mu.Unlock()

	alice := fakeClient("alice-id")
	bob := fakeClient("bob-id")

	hub.register <- alice
	info := nextMessageAs[SessionInfoMessage](t, alice.send)
	assert.False(t, info.IsExisting)
	assert.Equal(t, "testroom", info.RoomID)

	// First join makes alice host.
	hub.commands <- command{client: alice, msg: ClientMessage{Type: "join", Name: "alice"}}
	info = nextMessageAs[SessionInfoMessage](t, alice.send)
	assert.True(t, info.IsExisting)
	assert.True(t, info.IsHost)
	state := nextMessageAs[RoomStateMessage](t, alice.send)
	assert.Equal(t, "lobby", state.Phase)
	require.Len(t, state.Players, 1)

	hub.register <- bob
	nextMessageAs[SessionInfoMessage](t, bob.send)
	hub.commands <- command{client: bob, msg: ClientMessage{Type: "join", Name: "bob"}}
	info = nextMessageAs[SessionInfoMessage](t, bob.send)
	assert.False(t, info.IsHost)
	nextMessageAs[RoomStateMessage](t, bob.send)
	nextMessageAs[RoomStateMessage](t, alice.send)

	// Only the host may start.
	hub.commands <- command{client: bob, msg: ClientMessage{Type: "start"}}
	nextMessageAs[ErrorMessage](t, bob.send)

	hub.commands <- command{client: alice, msg: ClientMessage{Type: "start"}}
	state = nextMessageAs[RoomStateMessage](t, alice.send)
	assert.Equal(t, "speaker", state.Phase)
	assert.Equal(t, 1, state.Round)
	assert.Equal(t, "alice-id", state.SpeakerID)

	// The card goes to the speaker alone; bob sees only the snapshot.
	cardMsg := nextMessageAs[CardMessage](t, alice.send)
	assert.Equal(t, "pizza", cardMsg.Secret)
	nextMessageAs[RoomStateMessage](t, bob.send)

	// An accepted clue fans out to guessers, never back to the speaker.
	hub.commands <- command{client: alice, msg: ClientMessage{Type: "clue", Text: "food from naples"}}
	clue := nextMessageAs[ClueMessage](t, bob.send)
	assert.Equal(t, "food from naples", clue.Text)
	assert.Equal(t, "alice-id", clue.SpeakerID)
	nextMessageAs[RoomStateMessage](t, bob.send)
	state = nextMessageAs[RoomStateMessage](t, alice.send)
	assert.Equal(t, "guessing", state.Phase)
	assert.Equal(t, 1, state.ClueCount)

	// A wrong guess is announced to everyone and hands back to the speaker.
	hub.commands <- command{client: bob, msg: ClientMessage{Type: "guess", Text: "burger"}}
	result := nextMessageAs[GuessResultMessage](t, bob.send)
	assert.False(t, result.Correct)
	assert.Equal(t, "bob-id", result.GuesserID)
	nextMessageAs[RoomStateMessage](t, bob.send)
	nextMessageAs[GuessResultMessage](t, alice.send)
	nextMessageAs[RoomStateMessage](t, alice.send)

	// Reconnect with the same cookie: the snapshot records that bob already
	// used his guess, so the second connection cannot double-guess.
	bob2 := fakeClient("bob-id")
	hub.register <- bob2
	info = nextMessageAs[SessionInfoMessage](t, bob2.send)
	assert.True(t, info.IsExisting)
	assert.Equal(t, "bob", info.Name)
	state = nextMessageAs[RoomStateMessage](t, bob2.send)
	assert.Equal(t, "speaker", state.Phase)
	assert.Equal(t, []string{"bob-id"}, state.GuessedThisClue)

	hub.commands <- command{client: bob2, msg: ClientMessage{Type: "guess", Text: "burger"}}
	nextMessageAs[ErrorMessage](t, bob2.send)

	// Second clue reopens guessing, and a correct guess resolves the round.
	hub.commands <- command{client: alice, msg: ClientMessage{Type: "clue", Text: "round baked flatbread"}}
	nextMessageAs[ClueMessage](t, bob.send)
	nextMessageAs[RoomStateMessage](t, bob.send)
	nextMessageAs[ClueMessage](t, bob2.send)
	nextMessageAs[RoomStateMessage](t, bob2.send)
	nextMessageAs[RoomStateMessage](t, alice.send)

	hub.commands <- command{client: bob, msg: ClientMessage{Type: "guess", Text: "pizza"}}
	result = nextMessageAs[GuessResultMessage](t, bob.send)
	assert.True(t, result.Correct)

	ended := nextMessageAs[RoundEndedMessage](t, bob.send)
	assert.Equal(t, "pizza", ended.Secret)
	assert.Equal(t, "bob-id", ended.WinnerID)
	assert.Equal(t, 2, ended.CluesUsed)
	assert.InDelta(t, 8.0, ended.SpeakerPoints, 0.001)
	assert.InDelta(t, 5.0, ended.GuesserPoints, 0.001)

	// Bob is the new speaker, so both of his connections get the next card.
	cardMsg = nextMessageAs[CardMessage](t, bob.send)
	assert.Equal(t, "pizza", cardMsg.Secret)
	state = nextMessageAs[RoomStateMessage](t, bob.send)
	assert.Equal(t, 2, state.Round)
	assert.Equal(t, "bob-id", state.SpeakerID)
	assert.Equal(t, "speaker", state.Phase)

	nextMessageAs[GuessResultMessage](t, alice.send)
	nextMessageAs[RoundEndedMessage](t, alice.send)
	state = nextMessageAs[RoomStateMessage](t, alice.send)
	require.Len(t, state.Players, 2)
	for _, p := range state.Players {
		assert.Zero(t, p.GuessesUsed, "guess allotments reset between rounds")
	}
}

// A speaker reconnect must get the active card back along with the snapshot.
func TestHubSpeakerReconnectGetsCard(t *testing.T) {
	rm := newRoomManager(0)
	cfg := hubConfig()

	hub := rm.getHub(cfg, "cardroom")

	hub.mu.Lock()
	hub.room.deck = &cardDeck{source: []card{{
		Secret:    "guitar",
		Forbidden: []string{"strings", "music"},
	}}}
	hub.mu.Unlock()

	alice := fakeClient("alice-id")
	bob := fakeClient("bob-id")

	hub.register <- alice
	nextMessageAs[SessionInfoMessage](t, alice.send)
	hub.commands <- command{client: alice, msg: ClientMessage{Type: "join", Name: "alice"}}
	nextMessageAs[SessionInfoMessage](t, alice.send)
	nextMessageAs[RoomStateMessage](t, alice.send)

	hub.register <- bob
	nextMessageAs[SessionInfoMessage](t, bob.send)
	hub.commands <- command{client: bob, msg: ClientMessage{Type: "join", Name: "bob"}}
	nextMessageAs[SessionInfoMessage](t, bob.send)
	nextMessageAs[RoomStateMessage](t, bob.send)
	nextMessageAs[RoomStateMessage](t, alice.send)

	hub.commands <- command{client: alice, msg: ClientMessage{Type: "start"}}
	nextMessageAs[RoomStateMessage](t, alice.send)
	nextMessageAs[CardMessage](t, alice.send)

	alice2 := fakeClient("alice-id")
	hub.register <- alice2
	info := nextMessageAs[SessionInfoMessage](t, alice2.send)
	assert.True(t, info.IsSpeaker)
	nextMessageAs[RoomStateMessage](t, alice2.send)
	cardMsg := nextMessageAs[CardMessage](t, alice2.send)
	assert.Equal(t, "guitar", cardMsg.Secret)
}

// A queued command can still reference a client whose channel was closed by
// disconnect or eviction; the send must be dropped, not panic the hub.
func TestHubLateSendAfterCloseIsDropped(t *testing.T) {
	rm := newRoomManager(0)
	hub := newHub(hubConfig(), rm, "lateroom")

	c := fakeClient("alice-id")
	hub.clients[c] = true
	hub.closeAll()

	assert.NotPanics(t, func() {
		hub.mu.Lock()
		hub.sendToClientLocked(c, "late")
		hub.mu.Unlock()
	})
}

// Eviction signals the hub goroutine, which disconnects the remaining
// clients and exits instead of living on for the process lifetime.
func TestHubEvictionShutsDownHub(t *testing.T) {
	rm := newRoomManager(0)
	cfg := hubConfig()

	hub := rm.getHub(cfg, "doomedroom")

	c := fakeClient("alice-id")
	hub.register <- c
	nextMessageAs[SessionInfoMessage](t, c.send)

	rm.evict(hub)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-c.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("hub never closed its clients after eviction")
		}
	}
}

// State polls must count as room activity, or a room whose clients only poll
// between turns gets reaped mid-game.
func TestHubStateRefreshesActivity(t *testing.T) {
	rm := newRoomManager(0)
	cfg := hubConfig()

	hub := rm.getHub(cfg, "idleroom")

	c := fakeClient("alice-id")
	hub.register <- c
	nextMessageAs[SessionInfoMessage](t, c.send)

	hub.mu.Lock()
	hub.lastActive = time.Now().Add(-time.Hour)
	hub.mu.Unlock()

	hub.commands <- command{client: c, msg: ClientMessage{Type: "state"}}
	nextMessageAs[RoomStateMessage](t, c.send)

	hub.mu.RLock()
	last := hub.lastActive
	hub.mu.RUnlock()
	assert.WithinDuration(t, time.Now(), last, time.Minute)
}

// Removing the current speaker promotes the next player, who must be pushed
// the active card rather than having to poll for it.
func TestHubSpeakerRemovalPushesCard(t *testing.T) {
	rm := newRoomManager(0)
	cfg := hubConfig()
	cfg.playerTimeout = 10 * time.Millisecond

	hub := rm.getHub(cfg, "droproom")

	hub.mu.Lock()
	hub.room.deck = &cardDeck{source: []card{{
		Secret:    "pizza",
		Forbidden: []string{"cheese", "slice", "italy", "pepperoni", "dough"},
	}}}
	hub.mu.Unlock()

	alice := fakeClient("alice-id")
	bob := fakeClient("bob-id")

	hub.register <- alice
	nextMessageAs[SessionInfoMessage](t, alice.send)
	hub.commands <- command{client: alice, msg: ClientMessage{Type: "join", Name: "alice"}}
	nextMessageAs[SessionInfoMessage](t, alice.send)
	nextMessageAs[RoomStateMessage](t, alice.send)

	hub.register <- bob
	nextMessageAs[SessionInfoMessage](t, bob.send)
	hub.commands <- command{client: bob, msg: ClientMessage{Type: "join", Name: "bob"}}
	nextMessageAs[SessionInfoMessage](t, bob.send)
	nextMessageAs[RoomStateMessage](t, bob.send)

	hub.commands <- command{client: alice, msg: ClientMessage{Type: "start"}}
	awaitMessageAs[CardMessage](t, alice.send)
	state := awaitMessageAs[RoomStateMessage](t, bob.send)
	assert.Equal(t, "alice-id", state.SpeakerID)

	// Alice disconnects and times out; bob inherits the speaker role.
	hub.unreg <- alice

	cardMsg := awaitMessageAs[CardMessage](t, bob.send)
	assert.Equal(t, "pizza", cardMsg.Secret)
}

// Joining a second room with the same cookie is rejected by the directory.
func TestHubRejectsSecondRoom(t *testing.T) {
	rm := newRoomManager(0)
	cfg := hubConfig()

	first := rm.getHub(cfg, "room1")
	second := rm.getHub(cfg, "room2")

	alice := fakeClient("alice-id")
	first.register <- alice
	nextMessageAs[SessionInfoMessage](t, alice.send)
	first.commands <- command{client: alice, msg: ClientMessage{Type: "join", Name: "alice"}}
	nextMessageAs[SessionInfoMessage](t, alice.send)
	nextMessageAs[RoomStateMessage](t, alice.send)

	elsewhere := fakeClient("alice-id")
	second.register <- elsewhere
	info := nextMessageAs[SessionInfoMessage](t, elsewhere.send)
	assert.False(t, info.IsExisting)

	second.commands <- command{client: elsewhere, msg: ClientMessage{Type: "join", Name: "alice"}}
	errMsg := nextMessageAs[ErrorMessage](t, elsewhere.send)
	assert.Equal(t, errInAnotherRoom.Error(), errMsg.Message)
}
