/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

const (
	speakerBonusUnit = 1.0
	guesserBonusUnit = 0.5
	violationPenalty = 5.0
)

// basePoints maps the number of clues a successful round took to the points
// awarded to the speaker and the winning guesser. Fewer clues pay better;
// five or more (or a resolution with no clues at all) pays nothing.
func basePoints(clueCount int) (speaker, guesser float64) {
	switch {
	case clueCount >= 1 && clueCount <= 2:
		return 6, 4
	case clueCount >= 3 && clueCount <= 4:
		return 5, 3
	default:
		return 0, 0
	}
}

// speakerBonus pays one point per unused clue.
func speakerBonus(cluesUsed, maxClues int) float64 {
	unused := maxClues - cluesUsed
	if unused < 0 {
		unused = 0
	}
	return float64(unused) * speakerBonusUnit
}

// guesserBonus pays half a point per unused guess. Only wrong guesses count
// as used, so a first-try win keeps the full allotment.
func guesserBonus(guessesUsed, maxGuesses int) float64 {
	unused := maxGuesses - guessesUsed
	if unused < 0 {
		unused = 0
	}
	return float64(unused) * guesserBonusUnit
}
