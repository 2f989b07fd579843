/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	_ "embed"
	"encoding/json"
	"math/rand"
	"os"
)

//go:embed cards.json
var embeddedCards []byte

// card pairs a secret word with the words the speaker may not say.
// Immutable once drawn.
type card struct {
	Secret    string   `json:"secret"`
	Forbidden []string `json:"forbidden"`
}

// cardDeck yields a shuffled sequence of cards. Drawing past the end
// reshuffles the full list, so the supply never runs dry mid-game.
type cardDeck struct {
	source []card
	queue  []card
}

func newCardDeck(cfg *Config) *cardDeck {
	source := loadCards(cfg)

	deck := &cardDeck{
		source: source,
	}
	deck.refill()

	return deck
}

// loadCards reads the card list from --cards if set, falling back to the
// embedded list when the override is missing or malformed.
func loadCards(cfg *Config) []card {
	if cfg.cards != "" {
		data, err := os.ReadFile(cfg.cards)
		if err == nil {
			if cards := parseCards(data); len(cards) > 0 {
				return cards
			}
		}
		logf(cfg, "CARDS: Failed to load %q, using embedded card list", cfg.cards)
	}

	return parseCards(embeddedCards)
}

func parseCards(data []byte) []card {
	var cards []card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil
	}

	valid := cards[:0]
	for _, c := range cards {
		if c.Secret != "" {
			valid = append(valid, c)
		}
	}

	return valid
}

// refill replaces the queue with a freshly shuffled copy of the full list.
func (d *cardDeck) refill() {
	queue := make([]card, len(d.source))
	copy(queue, d.source)

	rand.Shuffle(len(queue), func(i, j int) {
		queue[i], queue[j] = queue[j], queue[i]
	})

	d.queue = queue
}

// draw pops the next card, reshuffling first if the queue is exhausted.
// Returns false only when the deck has no cards at all.
func (d *cardDeck) draw() (card, bool) {
	if len(d.queue) == 0 {
		d.refill()
	}
	if len(d.queue) == 0 {
		return card{}, false
	}

	next := d.queue[0]
	d.queue = d.queue[1:]

	return next, true
}
