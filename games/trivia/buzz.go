/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import "slices"

// DefaultBuzzSeconds is the buzz-in budget for a freshly revealed clue.
const DefaultBuzzSeconds = 8

// BuzzState is the countdown arbitration for the open clue. The first
// accepted buzz disables the window, so later buzzes in the same window
// are rejected in call order.
type BuzzState struct {
	Enabled        bool     `json:"enabled"`
	TimeLeft       int      `json:"timeLeft"`
	LockedOutIDs   []string `json:"lockedOutIds"`
	BuzzedPlayerID string   `json:"buzzedPlayerId,omitempty"`
}

func (b *BuzzState) clear() {
	*b = BuzzState{LockedOutIDs: []string{}}
}

// open starts a window. A daily double opens disabled with the selector
// already holding the clue.
func (b *BuzzState) open(seconds int, holder string, enabled bool) {
	*b = BuzzState{
		Enabled:        enabled,
		TimeLeft:       seconds,
		LockedOutIDs:   []string{},
		BuzzedPlayerID: holder,
	}
	if enabled {
		b.BuzzedPlayerID = ""
	}
}

// tick reports true once the budget runs out.
func (b *BuzzState) tick() bool {
	b.TimeLeft = max(0, b.TimeLeft-1)
	if b.TimeLeft > 0 {
		return false
	}

	b.Enabled = false
	b.BuzzedPlayerID = ""

	return true
}

func (b *BuzzState) IsLockedOut(playerID string) bool {
	return slices.Contains(b.LockedOutIDs, playerID)
}

func (b *BuzzState) buzz(playerID string) bool {
	if !b.Enabled || b.IsLockedOut(playerID) {
		return false
	}

	b.Enabled = false
	b.BuzzedPlayerID = playerID

	return true
}

// reopen locks out the last responder and resumes with the time that was
// left when they buzzed.
func (b *BuzzState) reopen() {
	locked := append(slices.Clone(b.LockedOutIDs), b.BuzzedPlayerID)

	b.Enabled = true
	b.LockedOutIDs = locked
	b.BuzzedPlayerID = ""
}

func (b BuzzState) clone() BuzzState {
	b.LockedOutIDs = slices.Clone(b.LockedOutIDs)
	if b.LockedOutIDs == nil {
		b.LockedOutIDs = []string{}
	}

	return b
}
