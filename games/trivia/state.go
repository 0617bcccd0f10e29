/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import "slices"

// CurrentClue exists only while the phase is CLUE_OPEN, BUZZING or
// ANSWER_JUDGING.
type CurrentClue struct {
	Round         Round `json:"round"`
	CategoryIndex int   `json:"categoryIndex"`
	ClueIndex     int   `json:"clueIndex"`
	Clue          Clue  `json:"clue"`
	IsDailyDouble bool  `json:"isDailyDouble"`
}

type AnswerState struct {
	Text          string `json:"text"`
	NeedsRephrase bool   `json:"needsRephrase"`
}

type ClueStatus struct {
	Jeopardy       Grid `json:"jeopardy"`
	DoubleJeopardy Grid `json:"doubleJeopardy"`
}

// State is a snapshot of a session. It shares nothing with the session or
// its catalog, so callers may modify it freely.
type State struct {
	Phase             Phase           `json:"phase"`
	Round             Round           `json:"round"`
	Rounds            Rounds          `json:"rounds"`
	ClueStatus        ClueStatus      `json:"clueStatus"`
	DailyDoubles      []DailyDouble   `json:"-"`
	Players           []Player        `json:"players"`
	CurrentSelectorID string          `json:"currentSelectorId,omitempty"`
	CurrentClue       *CurrentClue    `json:"currentClue,omitempty"`
	Buzz              BuzzState       `json:"buzz"`
	Answer            AnswerState     `json:"answer"`
	DailyDoubleWager  *int            `json:"dailyDoubleWager,omitempty"`
	Final             FinalRoundState `json:"finalRound"`
}

// Player looks a player up by id.
func (s *State) Player(id string) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}

	return Player{}, false
}

func (s *Session) Snapshot() State {
	st := State{
		Phase:  s.phase,
		Round:  s.round,
		Rounds: s.catalog.Rounds.clone(),
		ClueStatus: ClueStatus{
			Jeopardy:       s.board.Status[0],
			DoubleJeopardy: s.board.Status[1],
		},
		DailyDoubles:      slices.Clone(s.board.DailyDoubles),
		Players:           slices.Clone(s.players),
		CurrentSelectorID: s.selectorID,
		Buzz:              s.buzz.clone(),
		Answer:            s.answer,
		Final:             s.final.clone(),
	}

	if st.Players == nil {
		st.Players = []Player{}
	}

	if s.current != nil {
		cc := *s.current
		cc.Clue = cc.Clue.clone()
		st.CurrentClue = &cc
	}

	if s.ddWager != nil {
		w := *s.ddWager
		st.DailyDoubleWager = &w
	}

	return st
}
