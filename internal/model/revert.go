package model

import (
	"errors"
	"fmt"
)

// Revert is a fail-closed execution failure carrying a stable code.
// Two reverts are considered equal by errors.Is when their codes match,
// so a revert with a detailed reason still matches its sentinel.
type Revert struct {
	Code   string
	Reason string
}

// NewRevert creates a sentinel revert for the given code.
func NewRevert(code string) *Revert {
	return &Revert{Code: code}
}

func (r *Revert) Error() string {
	if r.Reason == "" {
		return r.Code
	}
	return r.Code + ": " + r.Reason
}

// Is reports whether target is a revert with the same code.
func (r *Revert) Is(target error) bool {
	t, ok := target.(*Revert)
	return ok && t.Code == r.Code
}

// Withf returns a copy of the revert with a formatted reason attached.
func (r *Revert) Withf(format string, args ...any) *Revert {
	return &Revert{Code: r.Code, Reason: fmt.Sprintf(format, args...)}
}

// IsRevert returns true if err is, or wraps, a Revert.
func IsRevert(err error) bool {
	var r *Revert
	return errors.As(err, &r)
}

// CodeOf returns the revert code wrapped by err, or "" if err is not a revert.
func CodeOf(err error) string {
	var r *Revert
	if errors.As(err, &r) {
		return r.Code
	}
	return ""
}

// Reverts shared by every action.
var (
	ErrSenderNotAllowed  = NewRevert("AUTH_SENDER_NOT_ALLOWED")
	ErrPaused            = NewRevert("ACTION_PAUSED")
	ErrAmountZero        = NewRevert("ACTION_AMOUNT_ZERO")
	ErrAddressZero       = NewRevert("ACTION_ADDRESS_ZERO")
	ErrGuardNotSupported = NewRevert("ACTION_GUARD_NOT_SUPPORTED")
	ErrInputLength       = NewRevert("ACTION_INPUT_LENGTH_MISMATCH")
)
