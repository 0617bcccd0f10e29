package trivia

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptedRand replays vals in order, wrapping each into [0, n).
type scriptedRand struct {
	vals []int
	next int
}

func (r *scriptedRand) IntN(n int) int {
	if len(r.vals) == 0 {
		return 0
	}
	v := r.vals[r.next%len(r.vals)]
	r.next++

	return v % n
}

func testRound(prefix string, base int) RoundData {
	var rd RoundData
	for i := 0; i < CategoriesPerRound; i++ {
		cat := Category{Name: fmt.Sprintf("%s category %d", prefix, i)}
		for j := 0; j < CluesPerCategory; j++ {
			cat.Clues = append(cat.Clues, Clue{
				Value:     base * (j + 1),
				Clue:      fmt.Sprintf("%s clue %d/%d", prefix, i, j),
				Responses: []string{fmt.Sprintf("answer %d/%d", i, j)},
			})
		}
		rd.Categories = append(rd.Categories, cat)
	}

	return rd
}

func testCatalog() *Catalog {
	return &Catalog{Rounds: Rounds{
		Jeopardy:       testRound("first", 200),
		DoubleJeopardy: testRound("second", 400),
		Final: FinalData{
			Category:  "Astronomy",
			Clue:      "This planet has the shortest year",
			Responses: []string{"Mercury"},
		},
	}}
}

// Selector is player-0; daily doubles at round 1 (5,4) and round 2 (5,4), (5,3).
var defaultScript = []int{0, 5, 4, 5, 4, 5, 3}

func newTestSession(t *testing.T, script ...int) *Session {
	t.Helper()

	if len(script) == 0 {
		script = defaultScript
	}

	s, err := New(testCatalog(), WithRand(&scriptedRand{vals: script}))
	require.NoError(t, err)
	require.NoError(t, s.Setup([]string{"A", "B", "C"}))

	return s
}

// playOut consumes a clue without anyone scoring on a regular clue.
func playOut(t *testing.T, s *Session, cat, clue int) {
	t.Helper()

	require.NoError(t, s.SelectClue(cat, clue))
	if s.Snapshot().CurrentClue.IsDailyDouble {
		require.NoError(t, s.SetDailyDoubleWager(DailyDoubleMinimum))
		require.NoError(t, s.StartBuzzWindow())
		require.NoError(t, s.JudgeAnswer(false))
		return
	}

	require.NoError(t, s.StartBuzzWindow())
	for s.Phase() == PhaseBuzzing {
		require.NoError(t, s.TickBuzz())
	}
}
