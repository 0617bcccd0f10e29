/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import "math"

// DailyDoubleMinimum is the floor for any daily-double wager.
const DailyDoubleMinimum = 5

type Limits struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// ValidateWager reports whether w is a number within [min, max].
func ValidateWager(w float64, min, max int) bool {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return false
	}

	return w >= float64(min) && w <= float64(max)
}

// DailyDoubleLimits lets a low or negative score still wager up to the
// board's top value.
func DailyDoubleLimits(score, highestValue int) Limits {
	return Limits{Min: DailyDoubleMinimum, Max: max(score, highestValue)}
}

func FinalWagerLimits(score int) Limits {
	return Limits{Min: 0, Max: score}
}

// wholeWager converts an accepted wager to points. Fractions are rejected.
func wholeWager(w float64, l Limits) (int, bool) {
	if !ValidateWager(w, l.Min, l.Max) || w != math.Trunc(w) {
		return 0, false
	}

	return int(w), true
}
