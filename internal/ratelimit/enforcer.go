package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// ErrExceeded is returned for calls over their sender's limit.
var ErrExceeded = errors.New("rate limit exceeded")

// CheckResult is the outcome of a rate limit check.
type CheckResult struct {
	Exceeded bool
	Current  int
	Limit    int
	Reason   string
	ID       string
}

// Err returns ErrExceeded wrapped with the reason, or nil.
func (r CheckResult) Err() error {
	if !r.Exceeded {
		return nil
	}
	return fmt.Errorf("%w: %s (%s)", ErrExceeded, r.Reason, r.ID)
}

// Check compares the current count against the limit.
func Check(count int, limit *Limit) CheckResult {
	if !limit.active() {
		return CheckResult{}
	}
	if count >= limit.MaxRequests {
		return CheckResult{
			Exceeded: true,
			Current:  count,
			Limit:    limit.MaxRequests,
			Reason: fmt.Sprintf("%d/%d calls in %s window",
				count, limit.MaxRequests, limit.Window),
		}
	}
	return CheckResult{}
}

// Evaluate looks up sender's limit for action and checks it.
// Returns (result, true) if the limit is exceeded.
// Returns (zero, false) if within limit or no limit is configured.
// When the check passes, the counter is incremented.
func (t *Tracker) Evaluate(cfg Config, sender, action string, now time.Time) (CheckResult, bool) {
	limit := cfg.limitFor(sender, action)
	if limit == nil {
		return CheckResult{}, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	count := t.snapshot(sender, action, limit.Window, now)
	result := Check(count, limit)
	if !result.Exceeded {
		t.increment(sender, action)
		return CheckResult{}, false
	}

	if sender == "" {
		sender = "global"
	}
	result.ID = fmt.Sprintf("ratelimit.%s.%s_exceeded", sender, action)
	return result, true
}
