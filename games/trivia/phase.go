/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

// Phase is the single source of truth for which commands are legal.
type Phase string

const (
	PhaseSetup         Phase = "SETUP"
	PhaseRound1Board   Phase = "ROUND1_BOARD"
	PhaseClueOpen      Phase = "CLUE_OPEN"
	PhaseBuzzing       Phase = "BUZZING"
	PhaseAnswerJudging Phase = "ANSWER_JUDGING"
	PhaseRound2Board   Phase = "ROUND2_BOARD"
	PhaseFinalCategory Phase = "FINAL_CATEGORY"
	PhaseFinalWager    Phase = "FINAL_WAGER"
	PhaseFinalClue     Phase = "FINAL_CLUE"
	PhaseFinalJudging  Phase = "FINAL_JUDGING"
	PhaseSummary       Phase = "SUMMARY"
)

var transitions = map[Phase][]Phase{
	PhaseSetup:         {PhaseRound1Board},
	PhaseRound1Board:   {PhaseClueOpen, PhaseRound2Board},
	PhaseClueOpen:      {PhaseBuzzing, PhaseAnswerJudging},
	PhaseBuzzing:       {PhaseAnswerJudging, PhaseRound1Board, PhaseRound2Board},
	PhaseAnswerJudging: {PhaseRound1Board, PhaseRound2Board},
	PhaseRound2Board:   {PhaseClueOpen, PhaseFinalCategory},
	PhaseFinalCategory: {PhaseFinalWager},
	PhaseFinalWager:    {PhaseFinalClue},
	PhaseFinalClue:     {PhaseFinalJudging},
	PhaseFinalJudging:  {PhaseSummary},
	PhaseSummary:       {PhaseSetup},
}

// Phases lists every phase in game order.
var Phases = []Phase{
	PhaseSetup,
	PhaseRound1Board,
	PhaseClueOpen,
	PhaseBuzzing,
	PhaseAnswerJudging,
	PhaseRound2Board,
	PhaseFinalCategory,
	PhaseFinalWager,
	PhaseFinalClue,
	PhaseFinalJudging,
	PhaseSummary,
}

func (p Phase) String() string {
	return string(p)
}

// ClueActive reports whether a clue is on screen in this phase.
func (p Phase) ClueActive() bool {
	switch p {
	case PhaseClueOpen, PhaseBuzzing, PhaseAnswerJudging:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the fixed phase graph has an edge from -> to.
func CanTransition(from, to Phase) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}

	return false
}

// BoardPhase returns the board phase for a round.
func BoardPhase(round Round) Phase {
	if round == Round2 {
		return PhaseRound2Board
	}

	return PhaseRound1Board
}
