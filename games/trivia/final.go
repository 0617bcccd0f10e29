/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import (
	"maps"
	"slices"
)

// DefaultFinalSeconds is the response budget once the final clue is shown.
const DefaultFinalSeconds = 30

// FinalRoundState is created when the final category is revealed. Judging
// holds an entry only for players already judged.
type FinalRoundState struct {
	Category  string            `json:"category"`
	Clue      string            `json:"clue"`
	Eligible  []string          `json:"eligible"`
	Responses map[string]string `json:"responses"`
	Wagers    map[string]int    `json:"wagers"`
	Judging   map[string]bool   `json:"judging"`
	TimeLeft  int               `json:"timeLeft"`
}

// newFinalRound admits only players whose score is positive right now.
func newFinalRound(data FinalData, players []Player) FinalRoundState {
	eligible := make([]string, 0, len(players))
	for _, p := range players {
		if p.Score > 0 {
			eligible = append(eligible, p.ID)
		}
	}

	return FinalRoundState{
		Category:  data.Category,
		Clue:      data.Clue,
		Eligible:  eligible,
		Responses: map[string]string{},
		Wagers:    map[string]int{},
		Judging:   map[string]bool{},
	}
}

func (f *FinalRoundState) IsEligible(playerID string) bool {
	return slices.Contains(f.Eligible, playerID)
}

func (f *FinalRoundState) IsJudged(playerID string) bool {
	_, ok := f.Judging[playerID]
	return ok
}

// AllJudged is true once every eligible player has a judgment. With no
// eligible players it is trivially true.
func (f *FinalRoundState) AllJudged() bool {
	for _, id := range f.Eligible {
		if !f.IsJudged(id) {
			return false
		}
	}

	return true
}

func (f *FinalRoundState) tick() bool {
	f.TimeLeft = max(0, f.TimeLeft-1)
	return f.TimeLeft == 0
}

func (f FinalRoundState) clone() FinalRoundState {
	f.Eligible = slices.Clone(f.Eligible)
	f.Responses = maps.Clone(f.Responses)
	f.Wagers = maps.Clone(f.Wagers)
	f.Judging = maps.Clone(f.Judging)

	return f
}
