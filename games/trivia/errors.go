/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import (
	"errors"
	"fmt"
)

// Every rejected command returns an error wrapping exactly one of these and
// leaves the session untouched. Callers that only care about the legacy
// "ignore invalid input" behaviour can discard the error.
var (
	ErrIllegalTransition = errors.New("illegal transition")
	ErrInvalidWager      = errors.New("invalid wager")
	ErrStaleAction       = errors.New("stale action")
	ErrInvalidInput      = errors.New("invalid input")
)

func reject(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

func illegal(from, to Phase) error {
	return reject(ErrIllegalTransition, "%s -> %s", from, to)
}

// Reason returns the short machine name of a rejection, or "" for nil.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIllegalTransition):
		return "illegal_transition"
	case errors.Is(err, ErrInvalidWager):
		return "invalid_wager"
	case errors.Is(err, ErrStaleAction):
		return "stale_action"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}
