/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"strings"
	"unicode"
)

// normalizeText canonicalizes a string for comparison: lowercase, trimmed,
// punctuation stripped, internal whitespace collapsed. Idempotent, so stored
// normalized forms can be compared against freshly normalized input directly.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
			}
			lastSpace = true
		}
	}

	return strings.TrimRight(b.String(), " ")
}

// tokenizeText splits a normalized string into its words.
func tokenizeText(s string) []string {
	return strings.Fields(s)
}

// isPhonetic reports whether a normalized string consists solely of ASCII
// letters and spaces, i.e. whether phonetic codecs can encode it meaningfully.
func isPhonetic(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != ' ' && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
