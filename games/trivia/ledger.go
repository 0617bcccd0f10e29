/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import (
	"cmp"
	"slices"
)

type PlayerStats struct {
	Correct             int `json:"correct"`
	Wrong               int `json:"wrong"`
	TotalAttempts       int `json:"totalAttempts"`
	DailyDoubleAttempts int `json:"dailyDoubleAttempts"`
	DailyDoubleCorrect  int `json:"dailyDoubleCorrect"`
}

// Player scores may go negative.
type Player struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Score int         `json:"score"`
	Stats PlayerStats `json:"stats"`
}

// ApplyJudgment adds or subtracts amount and records one attempt.
func ApplyJudgment(p *Player, amount int, correct, dailyDouble bool) {
	p.Stats.TotalAttempts++

	if correct {
		p.Score += amount
		p.Stats.Correct++
	} else {
		p.Score -= amount
		p.Stats.Wrong++
	}

	if dailyDouble {
		p.Stats.DailyDoubleAttempts++
		if correct {
			p.Stats.DailyDoubleCorrect++
		}
	}
}

// ApplyWager settles a final-round wager. Final responses are not counted
// as clue attempts.
func ApplyWager(p *Player, wager int, correct bool) {
	if correct {
		p.Score += wager
	} else {
		p.Score -= wager
	}
}

// Standings orders players by score, highest first, keeping seat order on ties.
func Standings(players []Player) []Player {
	out := slices.Clone(players)
	slices.SortStableFunc(out, func(a, b Player) int {
		return cmp.Compare(b.Score, a.Score)
	})

	return out
}
