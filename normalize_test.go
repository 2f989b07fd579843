/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "PIZZA", "pizza"},
		{"trim", "  pizza  ", "pizza"},
		{"punctuation", "it's a pizza!", "its a pizza"},
		{"collapse whitespace", "deep\t dish   pizza", "deep dish pizza"},
		{"mixed", "  Deep-Dish, PIZZA!  ", "deepdish pizza"},
		{"digits kept", "route 66", "route 66"},
		{"empty", "", ""},
		{"only punctuation", "?!...", ""},
		{"unicode", "Crème Brûlée", "crème brûlée"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeText(tt.input)
			assert.Equal(t, tt.want, got)

			// Idempotence: normalizing a normalized string is a no-op.
			assert.Equal(t, got, normalizeText(got))
		})
	}
}

func TestTokenizeText(t *testing.T) {
	assert.Equal(t, []string{"deep", "dish", "pizza"}, tokenizeText("deep dish pizza"))
	assert.Empty(t, tokenizeText(""))
}

func TestIsPhonetic(t *testing.T) {
	assert.True(t, isPhonetic("pizza"))
	assert.True(t, isPhonetic("deep dish"))
	assert.False(t, isPhonetic(""))
	assert.False(t, isPhonetic("ピザ"))
	assert.False(t, isPhonetic("пицца"))
	assert.False(t, isPhonetic("route 66"))
}
