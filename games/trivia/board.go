/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import "fmt"

type Round int

const (
	Round1 Round = 1
	Round2 Round = 2
)

func (r Round) String() string {
	return fmt.Sprintf("round %d", int(r))
}

// Rand is the uniform random source used for daily-double placement and
// the opening selector. *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type DailyDouble struct {
	Round         Round `json:"round"`
	CategoryIndex int   `json:"categoryIndex"`
	ClueIndex     int   `json:"clueIndex"`
}

// Grid marks consumed clues, indexed [category][clue].
type Grid [CategoriesPerRound][CluesPerCategory]bool

// Board tracks used clues for both rounds and where the daily doubles sit.
type Board struct {
	Status       [2]Grid
	DailyDoubles []DailyDouble
}

func newBoard(r Rand) Board {
	return Board{DailyDoubles: AssignDailyDoubles(r)}
}

// AssignDailyDoubles picks one cell in round 1 and two in round 2, redrawing
// until every cell is distinct.
func AssignDailyDoubles(r Rand) []DailyDouble {
	used := make(map[DailyDouble]bool, 3)
	results := make([]DailyDouble, 0, 3)

	pick := func(round Round) {
		for {
			dd := DailyDouble{
				Round:         round,
				CategoryIndex: r.IntN(CategoriesPerRound),
				ClueIndex:     r.IntN(CluesPerCategory),
			}
			if used[dd] {
				continue
			}
			used[dd] = true
			results = append(results, dd)
			return
		}
	}

	pick(Round1)
	pick(Round2)
	pick(Round2)

	return results
}

func inBounds(categoryIndex, clueIndex int) bool {
	return categoryIndex >= 0 && categoryIndex < CategoriesPerRound &&
		clueIndex >= 0 && clueIndex < CluesPerCategory
}

func (b *Board) grid(round Round) *Grid {
	return &b.Status[int(round)-1]
}

func (b *Board) Used(round Round, categoryIndex, clueIndex int) bool {
	return b.grid(round)[categoryIndex][clueIndex]
}

func (b *Board) markUsed(round Round, categoryIndex, clueIndex int) {
	b.grid(round)[categoryIndex][clueIndex] = true
}

func (b *Board) IsDailyDouble(round Round, categoryIndex, clueIndex int) bool {
	for _, dd := range b.DailyDoubles {
		if dd.Round == round && dd.CategoryIndex == categoryIndex && dd.ClueIndex == clueIndex {
			return true
		}
	}

	return false
}

// Remaining counts unused clues in a round.
func (b *Board) Remaining(round Round) int {
	n := 0
	for _, col := range b.grid(round) {
		for _, used := range col {
			if !used {
				n++
			}
		}
	}

	return n
}

func (b *Board) IsRoundComplete(round Round) bool {
	return b.Remaining(round) == 0
}
