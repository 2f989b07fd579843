/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/antzucaro/matchr"
)

// matcher decides whether two strings denote the same word for gameplay
// purposes. Layers run in increasing cost order and short-circuit:
// exact equality, bigram similarity, adaptive edit distance, then phonetic
// codes. An optional semantic judge covers scripts the phonetic codecs
// cannot encode; its verdict never overrides a local hit.
type matcher struct {
	threshold float64
	dice      *metrics.SorensenDice
	judge     *semanticJudge
}

func newMatcher(threshold float64, judge *semanticJudge) *matcher {
	dice := metrics.NewSorensenDice()
	dice.CaseSensitive = false
	dice.NgramSize = 2

	return &matcher{
		threshold: threshold,
		dice:      dice,
		judge:     judge,
	}
}

// maxEditDistance caps the typo-tolerance layer by the shorter word's
// length, so unrelated short words never collide.
func maxEditDistance(length int) int {
	switch {
	case length <= 3:
		return 1
	case length <= 5:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

// wordsMatch compares two already-normalized strings.
func (m *matcher) wordsMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}

	if a == b {
		return true
	}

	if strutil.Similarity(a, b, m.dice) >= m.threshold {
		return true
	}

	shorter := len([]rune(a))
	if l := len([]rune(b)); l < shorter {
		shorter = l
	}
	if matchr.Levenshtein(a, b) <= maxEditDistance(shorter) {
		return true
	}

	// Phonetic codecs only encode ASCII letters; other scripts skip this layer.
	if isPhonetic(a) && isPhonetic(b) {
		pa, _ := matchr.DoubleMetaphone(a)
		pb, _ := matchr.DoubleMetaphone(b)
		if pa != "" && pa == pb {
			return true
		}
		if sa := matchr.Soundex(a); sa != "" && sa == matchr.Soundex(b) {
			return true
		}
	}

	return false
}

// guessMatches reports whether a raw guess denotes the secret word. The
// local layered verdict is authoritative; the semantic judge is consulted
// only for non-phonetic scripts, and any judge failure degrades to the
// local answer.
func (m *matcher) guessMatches(ctx context.Context, guess, secret string) bool {
	ng := normalizeText(guess)
	ns := normalizeText(secret)

	if m.wordsMatch(ng, ns) {
		return true
	}

	// Multi-word secrets also match when the guess contains them whole.
	if strings.Contains(" "+ng+" ", " "+ns+" ") {
		return true
	}

	if m.judge != nil && (!isPhonetic(ng) || !isPhonetic(ns)) {
		verdict, err := m.judge.judge(ctx, ng, ns, nil)
		if err == nil && verdict.IsMatch {
			return true
		}
	}

	return false
}

// clueViolations returns every word of the card that a raw clue utters,
// checking each clue token and the whole phrase against the secret word and
// all forbidden words. The first entry is the word to report to players.
func (m *matcher) clueViolations(ctx context.Context, clue string, c card) []string {
	nc := normalizeText(clue)
	tokens := tokenizeText(nc)

	targets := make([]string, 0, len(c.Forbidden)+1)
	targets = append(targets, c.Secret)
	targets = append(targets, c.Forbidden...)

	var violations []string
	for _, target := range targets {
		nt := normalizeText(target)
		if nt == "" {
			continue
		}

		hit := strings.Contains(" "+nc+" ", " "+nt+" ")
		if !hit {
			for _, token := range tokens {
				if m.wordsMatch(token, nt) {
					hit = true
					break
				}
			}
		}
		if !hit && strings.Contains(nt, " ") && m.wordsMatch(nc, nt) {
			hit = true
		}

		if hit {
			violations = append(violations, target)
		}
	}

	if len(violations) > 0 {
		return violations
	}

	// The judge may catch violations in scripts the local layers cannot
	// encode, but a judge miss never clears a local hit: local layers have
	// already run, and any judge error falls through to their verdict.
	if m.judge != nil && !isPhonetic(nc) {
		verdict, err := m.judge.judge(ctx, nc, normalizeText(c.Secret), c.Forbidden)
		if err == nil && (verdict.IsForbidden || verdict.IsMatch) {
			return []string{c.Secret}
		}
	}

	return nil
}
