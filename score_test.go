/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasePoints(t *testing.T) {
	tests := []struct {
		clues   int
		speaker float64
		guesser float64
	}{
		{0, 0, 0},
		{1, 6, 4},
		{2, 6, 4},
		{3, 5, 3},
		{4, 5, 3},
		{5, 0, 0},
		{6, 0, 0},
		{10, 0, 0},
	}

	for _, tt := range tests {
		speaker, guesser := basePoints(tt.clues)
		assert.Equal(t, tt.speaker, speaker, "speaker points for %d clues", tt.clues)
		assert.Equal(t, tt.guesser, guesser, "guesser points for %d clues", tt.clues)
	}
}

func TestSpeakerBonus(t *testing.T) {
	assert.Equal(t, 3.0, speakerBonus(1, 4))
	assert.Equal(t, 0.0, speakerBonus(4, 4))
	assert.Equal(t, 0.0, speakerBonus(7, 4), "overshoot never goes negative")
}

func TestGuesserBonus(t *testing.T) {
	assert.Equal(t, 1.5, guesserBonus(0, 3))
	assert.Equal(t, 0.5, guesserBonus(2, 3))
	assert.Equal(t, 0.0, guesserBonus(3, 3))
	assert.Equal(t, 0.0, guesserBonus(5, 3), "overshoot never goes negative")
}
