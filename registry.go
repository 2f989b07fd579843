/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"
)

var errInAnotherRoom = errors.New("you are already in another room")

// RoomManager holds the set of hubs keyed by room ID, plus the directory
// mapping player IDs to the room they belong to, so a player is in at most
// one room at a time and disconnects route without a room ID in hand.
type RoomManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	playerRooms map[string]string
	idleTimeout time.Duration
}

func newRoomManager(idleTimeout time.Duration) *RoomManager {
	rm := &RoomManager{
		hubs:        make(map[string]*Hub),
		playerRooms: make(map[string]string),
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go rm.reaperLoop()
	}
	return rm
}

// getHub returns the hub for a room ID, creating and starting it on first
// use.
func (rm *RoomManager) getHub(cfg *Config, roomID string) *Hub {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if hub, ok := rm.hubs[roomID]; ok {
		return hub
	}

	hub := newHub(cfg, rm, roomID)
	rm.hubs[roomID] = hub
	go hub.run()

	return hub
}

// newRoomID generates a crypto-random room ID and ensures it doesn't
// collide with existing rooms.
func (rm *RoomManager) newRoomID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		rm.mu.Lock()
		_, exists := rm.hubs[id]
		rm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// bindPlayer records a player's room membership, rejecting membership in a
// second room.
func (rm *RoomManager) bindPlayer(playerID, roomID string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if existing, ok := rm.playerRooms[playerID]; ok && existing != roomID {
		return errInAnotherRoom
	}
	rm.playerRooms[playerID] = roomID

	return nil
}

func (rm *RoomManager) releasePlayer(playerID string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	delete(rm.playerRooms, playerID)
}

// roomFor looks up the room a player belongs to.
func (rm *RoomManager) roomFor(playerID string) (string, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	roomID, ok := rm.playerRooms[playerID]

	return roomID, ok
}

// evict removes a room from the registry and signals its hub to shut down,
// which disconnects any remaining clients. Called exactly when a room's
// player list empties, and by the reaper for idle rooms.
func (rm *RoomManager) evict(hub *Hub) {
	members := hub.memberIDs()

	rm.mu.Lock()
	delete(rm.hubs, hub.id)
	for _, playerID := range members {
		delete(rm.playerRooms, playerID)
	}
	rm.mu.Unlock()

	hub.stop()
}

// reaperLoop periodically evicts hubs that have been idle longer than
// idleTimeout.
func (rm *RoomManager) reaperLoop() {
	ticker := time.NewTicker(rm.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-rm.idleTimeout)

		rm.mu.Lock()
		hubs := make([]*Hub, 0, len(rm.hubs))
		for _, hub := range rm.hubs {
			hubs = append(hubs, hub)
		}
		rm.mu.Unlock()

		for _, hub := range hubs {
			hub.mu.RLock()
			last := hub.lastActive
			hub.mu.RUnlock()

			if last.Before(cutoff) {
				rm.evict(hub)
			}
		}
	}
}
