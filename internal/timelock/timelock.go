// Package timelock enforces a minimum interval between executions.
package timelock

import (
	"time"

	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/model"
)

var (
	ErrAlreadyInitialized = model.NewRevert("ACTION_TIME_LOCK_ALREADY_INITIALIZED")
	ErrNotInitialized     = model.NewRevert("ACTION_TIME_LOCK_NOT_INITIALIZED")
	ErrNotExpired         = model.NewRevert("ACTION_TIME_LOCK_NOT_EXPIRED")
)

// Lock is a time lock. The zero value is unset and accepts every call.
type Lock struct {
	delay         time.Duration
	nextResetTime time.Time
	isSet         bool
}

// Initialize arms the lock. The first execution is allowed once
// initialDelay has elapsed from now; later ones every delay.
func (l *Lock) Initialize(now time.Time, initialDelay, delay time.Duration) error {
	if l.isSet {
		return ErrAlreadyInitialized
	}
	l.isSet = true
	l.delay = delay
	l.nextResetTime = now.Add(initialDelay)
	return nil
}

// SetDelay changes the interval applied after the next execution.
func (l *Lock) SetDelay(delay time.Duration) error {
	if !l.isSet {
		return ErrNotInitialized
	}
	l.delay = delay
	return nil
}

// Validate checks the lock at the block time and, when it has expired,
// schedules the next window delay after now.
func (l *Lock) Validate(f *chain.Frame) error {
	f.UseGas(chain.GasStorageRead)
	if err := l.check(f.Now()); err != nil {
		return err
	}
	if l.isSet {
		f.UseGas(chain.GasStorageWrite)
	}
	return nil
}

func (l *Lock) check(now time.Time) error {
	if !l.isSet {
		return nil
	}
	if now.Before(l.nextResetTime) {
		return ErrNotExpired.Withf("locked until %s", l.nextResetTime.UTC().Format(time.RFC3339))
	}
	l.nextResetTime = now.Add(l.delay)
	return nil
}

func (l *Lock) Delay() time.Duration { return l.delay }

func (l *Lock) NextResetTime() time.Time { return l.nextResetTime }

func (l *Lock) IsSet() bool { return l.isSet }

func (l *Lock) Clone() *Lock {
	c := *l
	return &c
}
