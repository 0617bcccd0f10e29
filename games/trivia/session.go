/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package trivia implements the game session for a trivia-board contest:
// phase rules, the clue board, timed buzz-in arbitration, wagers, scoring
// and the final round.
//
// A Session is not safe for concurrent use. Hosts must route every command
// and timer tick through a single goroutine. Timers are not owned here;
// the host calls TickBuzz and TickFinal once per second and ticks that
// arrive in the wrong phase are rejected without effect.
package trivia

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"strconv"
	"strings"
)

// PlayerCount is the number of seats in a game.
const PlayerCount = 3

type Session struct {
	catalog      *Catalog
	rand         Rand
	buzzSeconds  int
	finalSeconds int

	phase      Phase
	round      Round
	board      Board
	players    []Player
	selectorID string
	current    *CurrentClue
	buzz       BuzzState
	answer     AnswerState
	ddWager    *int
	final      FinalRoundState
}

type Option func(*Session)

// WithRand injects the random source used for daily doubles and the
// opening selector.
func WithRand(r Rand) Option {
	return func(s *Session) {
		s.rand = r
	}
}

func WithBuzzSeconds(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.buzzSeconds = n
		}
	}
}

func WithFinalSeconds(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.finalSeconds = n
		}
	}
}

// New returns a session in SETUP backed by a validated catalog.
func New(catalog *Catalog, opts ...Option) (*Session, error) {
	if catalog == nil {
		return nil, reject(ErrInvalidCatalog, "nil catalog")
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		catalog:      catalog,
		buzzSeconds:  DefaultBuzzSeconds,
		finalSeconds: DefaultFinalSeconds,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rand == nil {
		s.rand = newSeededRand()
	}

	s.resetState()

	return s, nil
}

func newSeededRand() *rand.Rand {
	var b [16]byte
	_, _ = crand.Read(b[:])

	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])))
}

func (s *Session) resetState() {
	s.phase = PhaseSetup
	s.round = Round1
	s.board = Board{}
	s.players = nil
	s.selectorID = ""
	s.current = nil
	s.buzz.clear()
	s.answer = AnswerState{}
	s.ddWager = nil
	s.final = FinalRoundState{}
}

func (s *Session) Phase() Phase {
	return s.phase
}

func (s *Session) Round() Round {
	return s.round
}

func (s *Session) player(id string) *Player {
	for i := range s.players {
		if s.players[i].ID == id {
			return &s.players[i]
		}
	}

	return nil
}

// Setup seats three named players, picks the opening selector and places
// the daily doubles.
func (s *Session) Setup(names []string) error {
	if s.phase != PhaseSetup || !CanTransition(s.phase, PhaseRound1Board) {
		return illegal(s.phase, PhaseRound1Board)
	}
	if len(names) != PlayerCount {
		return reject(ErrInvalidInput, "want %d player names, got %d", PlayerCount, len(names))
	}

	players := make([]Player, 0, PlayerCount)
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return reject(ErrInvalidInput, "player %d has no name", i+1)
		}
		players = append(players, Player{
			ID:   PlayerID(i),
			Name: name,
		})
	}

	s.resetState()
	s.players = players
	s.selectorID = players[s.rand.IntN(len(players))].ID
	s.board = newBoard(s.rand)
	s.phase = PhaseRound1Board

	return nil
}

// PlayerID returns the stable id of the player in seat i.
func PlayerID(seat int) string {
	return "player-" + strconv.Itoa(seat)
}

// SelectClue opens an unused clue on the active board.
func (s *Session) SelectClue(categoryIndex, clueIndex int) error {
	if !CanTransition(s.phase, PhaseClueOpen) {
		return illegal(s.phase, PhaseClueOpen)
	}
	if !inBounds(categoryIndex, clueIndex) {
		return reject(ErrInvalidInput, "no clue at (%d, %d)", categoryIndex, clueIndex)
	}
	if s.board.Used(s.round, categoryIndex, clueIndex) {
		return reject(ErrStaleAction, "clue (%d, %d) already used in %s", categoryIndex, clueIndex, s.round)
	}

	s.board.markUsed(s.round, categoryIndex, clueIndex)
	s.current = &CurrentClue{
		Round:         s.round,
		CategoryIndex: categoryIndex,
		ClueIndex:     clueIndex,
		Clue:          s.catalog.Round(s.round).Categories[categoryIndex].Clues[clueIndex],
		IsDailyDouble: s.board.IsDailyDouble(s.round, categoryIndex, clueIndex),
	}
	s.buzz.clear()
	s.answer = AnswerState{}
	s.ddWager = nil
	s.phase = PhaseClueOpen

	return nil
}

// DailyDoubleLimits returns the wager bounds for the open daily double.
func (s *Session) DailyDoubleLimits() (Limits, bool) {
	if s.current == nil || !s.current.IsDailyDouble {
		return Limits{}, false
	}

	selector := s.player(s.selectorID)
	if selector == nil {
		return Limits{}, false
	}

	return DailyDoubleLimits(selector.Score, s.catalog.Round(s.round).HighestValue()), true
}

// SetDailyDoubleWager locks the selector's wager before the clue is revealed.
func (s *Session) SetDailyDoubleWager(amount float64) error {
	if s.phase != PhaseClueOpen {
		return reject(ErrIllegalTransition, "daily double wagers are only taken in %s, not %s", PhaseClueOpen, s.phase)
	}

	limits, ok := s.DailyDoubleLimits()
	if !ok {
		return reject(ErrInvalidInput, "current clue is not a daily double")
	}

	wager, ok := wholeWager(amount, limits)
	if !ok {
		return reject(ErrInvalidWager, "%v outside [%d, %d]", amount, limits.Min, limits.Max)
	}

	s.ddWager = &wager

	return nil
}

// StartBuzzWindow reveals the open clue. Regular clues start the buzz
// countdown; a daily double goes straight to the selector once wagered.
func (s *Session) StartBuzzWindow() error {
	if s.current == nil {
		return reject(ErrIllegalTransition, "no clue open in %s", s.phase)
	}

	next := PhaseBuzzing
	if s.current.IsDailyDouble {
		next = PhaseAnswerJudging
	}
	if !CanTransition(s.phase, next) {
		return illegal(s.phase, next)
	}
	if s.current.IsDailyDouble && s.ddWager == nil {
		return reject(ErrInvalidWager, "daily double wager not locked")
	}

	s.buzz.open(s.buzzSeconds, s.selectorID, !s.current.IsDailyDouble)
	s.answer = AnswerState{}
	s.phase = next

	return nil
}

// TickBuzz advances the buzz countdown by one second. When it reaches zero
// nobody answers and play returns to the board.
func (s *Session) TickBuzz() error {
	if s.phase != PhaseBuzzing || !s.buzz.Enabled {
		return reject(ErrStaleAction, "buzz tick in %s", s.phase)
	}

	if s.buzz.tick() {
		s.returnToBoard()
	}

	return nil
}

// RegisterBuzz accepts the first buzz from a player who is not locked out.
func (s *Session) RegisterBuzz(playerID string) error {
	if s.phase != PhaseBuzzing {
		return reject(ErrIllegalTransition, "buzz in %s", s.phase)
	}
	if s.player(playerID) == nil {
		return reject(ErrInvalidInput, "unknown player %q", playerID)
	}
	if s.buzz.IsLockedOut(playerID) {
		return reject(ErrStaleAction, "%s is locked out", playerID)
	}
	if !s.buzz.buzz(playerID) {
		return reject(ErrStaleAction, "buzz window closed")
	}

	s.answer = AnswerState{}
	s.phase = PhaseAnswerJudging

	return nil
}

// SubmitAnswer records the responder's text. A round-one regular clue asks
// for a rephrase when the text is not a question; anywhere else that is an
// automatic incorrect judgment.
func (s *Session) SubmitAnswer(text string) error {
	if s.phase != PhaseAnswerJudging || s.current == nil {
		return reject(ErrIllegalTransition, "answer in %s", s.phase)
	}

	if IsQuestionForm(text) {
		s.answer = AnswerState{Text: text}
		return nil
	}

	if s.round == Round1 && !s.current.IsDailyDouble {
		s.answer = AnswerState{Text: text, NeedsRephrase: true}
		return nil
	}

	return s.JudgeAnswer(false)
}

// JudgeAnswer scores the current responder. An incorrect answer on a
// regular clue with time left reopens buzzing for everyone else.
func (s *Session) JudgeAnswer(correct bool) error {
	if s.phase != PhaseAnswerJudging || s.current == nil {
		return reject(ErrIllegalTransition, "judgment in %s", s.phase)
	}

	responder := s.player(s.buzz.BuzzedPlayerID)
	if responder == nil {
		return reject(ErrStaleAction, "no responder to judge")
	}

	dailyDouble := s.current.IsDailyDouble
	amount := s.current.Clue.Value
	if dailyDouble && s.ddWager != nil {
		amount = *s.ddWager
	}

	ApplyJudgment(responder, amount, correct, dailyDouble)

	if !correct && !dailyDouble && s.buzz.TimeLeft > 0 {
		s.buzz.reopen()
		s.answer = AnswerState{}
		s.phase = PhaseBuzzing

		return nil
	}

	if correct {
		s.selectorID = responder.ID
	}
	s.returnToBoard()

	return nil
}

func (s *Session) returnToBoard() {
	s.phase = BoardPhase(s.round)
	s.current = nil
	s.buzz.clear()
	s.answer = AnswerState{}
	s.ddWager = nil

	_ = s.AdvanceRoundIfReady()
}

// AdvanceRoundIfReady moves on once every clue of the active board is used:
// round one goes to round two, round two goes to the final category.
func (s *Session) AdvanceRoundIfReady() error {
	if s.phase != BoardPhase(s.round) {
		return reject(ErrIllegalTransition, "round advance in %s", s.phase)
	}
	if !s.board.IsRoundComplete(s.round) {
		return reject(ErrIllegalTransition, "%s has %d clues left", s.round, s.board.Remaining(s.round))
	}

	s.advanceRound()

	return nil
}

// EndRound skips whatever clues remain on the active board.
func (s *Session) EndRound() error {
	if s.phase != BoardPhase(s.round) {
		return reject(ErrIllegalTransition, "end round in %s", s.phase)
	}

	s.advanceRound()

	return nil
}

func (s *Session) advanceRound() {
	if s.round == Round1 {
		s.round = Round2
		s.phase = PhaseRound2Board

		return
	}

	s.final = newFinalRound(s.catalog.Rounds.Final, s.players)
	s.phase = PhaseFinalCategory
}

func (s *Session) OpenFinalWagers() error {
	if !CanTransition(s.phase, PhaseFinalWager) {
		return illegal(s.phase, PhaseFinalWager)
	}

	s.phase = PhaseFinalWager

	return nil
}

func (s *Session) finalPlayer(playerID string) (*Player, error) {
	p := s.player(playerID)
	if p == nil {
		return nil, reject(ErrInvalidInput, "unknown player %q", playerID)
	}
	if !s.final.IsEligible(playerID) {
		return nil, reject(ErrInvalidInput, "%s is not in the final round", playerID)
	}

	return p, nil
}

// SetFinalWager locks a wager between zero and the player's score. A wager
// may be changed until the final clue is revealed.
func (s *Session) SetFinalWager(playerID string, amount float64) error {
	if s.phase != PhaseFinalWager {
		return reject(ErrIllegalTransition, "final wager in %s", s.phase)
	}

	p, err := s.finalPlayer(playerID)
	if err != nil {
		return err
	}

	limits := FinalWagerLimits(p.Score)
	wager, ok := wholeWager(amount, limits)
	if !ok {
		return reject(ErrInvalidWager, "%v outside [%d, %d]", amount, limits.Min, limits.Max)
	}

	s.final.Wagers[playerID] = wager

	return nil
}

// RevealFinalClue shows the final clue and starts the response countdown.
func (s *Session) RevealFinalClue() error {
	if !CanTransition(s.phase, PhaseFinalClue) {
		return illegal(s.phase, PhaseFinalClue)
	}

	s.final.TimeLeft = s.finalSeconds
	s.phase = PhaseFinalClue

	return nil
}

func (s *Session) SetFinalResponse(playerID, text string) error {
	if s.phase != PhaseFinalClue {
		return reject(ErrIllegalTransition, "final response in %s", s.phase)
	}

	if _, err := s.finalPlayer(playerID); err != nil {
		return err
	}

	s.final.Responses[playerID] = text

	return nil
}

// TickFinal advances the final countdown; at zero responses close.
func (s *Session) TickFinal() error {
	if s.phase != PhaseFinalClue {
		return reject(ErrStaleAction, "final tick in %s", s.phase)
	}

	if s.final.tick() {
		s.phase = PhaseFinalJudging
	}

	return nil
}

// CloseFinalResponses ends the response period before the countdown does.
func (s *Session) CloseFinalResponses() error {
	if !CanTransition(s.phase, PhaseFinalJudging) {
		return illegal(s.phase, PhaseFinalJudging)
	}

	s.final.TimeLeft = 0
	s.phase = PhaseFinalJudging

	return nil
}

// JudgeFinal settles one player's wager. A response that is missing or not
// in question form is always judged incorrect.
func (s *Session) JudgeFinal(playerID string, correct bool) error {
	if s.phase != PhaseFinalJudging {
		return reject(ErrIllegalTransition, "final judgment in %s", s.phase)
	}

	p, err := s.finalPlayer(playerID)
	if err != nil {
		return err
	}
	if s.final.IsJudged(playerID) {
		return reject(ErrStaleAction, "%s already judged", playerID)
	}

	if !IsQuestionForm(s.final.Responses[playerID]) {
		correct = false
	}

	ApplyWager(p, s.final.Wagers[playerID], correct)
	s.final.Judging[playerID] = correct

	return nil
}

// FinalizeFinal moves to the summary once every finalist is judged.
func (s *Session) FinalizeFinal() error {
	if !CanTransition(s.phase, PhaseSummary) {
		return illegal(s.phase, PhaseSummary)
	}
	if !s.final.AllJudged() {
		return reject(ErrIllegalTransition, "final round has unjudged players")
	}

	s.phase = PhaseSummary

	return nil
}

// Reset returns a finished game to SETUP, keeping the catalog.
func (s *Session) Reset() error {
	if !CanTransition(s.phase, PhaseSetup) {
		return illegal(s.phase, PhaseSetup)
	}

	s.resetState()

	return nil
}
