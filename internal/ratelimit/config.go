// Package ratelimit caps how often a sender may call an action through the
// daemon. Limits are admission control in front of the chain: a limited
// call never becomes a transaction.
package ratelimit

import "time"

// Wildcard matches any sender or any action.
const Wildcard = "*"

// Limit allows MaxRequests calls per Window.
// Zero values mean no limit.
type Limit struct {
	MaxRequests int           `yaml:"max_requests" json:"max_requests"`
	Window      time.Duration `yaml:"window" json:"window"`
}

func (l *Limit) active() bool {
	return l != nil && l.MaxRequests > 0 && l.Window > 0
}

// SenderLimits maps action names to their limits for one sender.
type SenderLimits map[string]*Limit

// HasLimits returns true if any action has a configured limit.
func (c SenderLimits) HasLimits() bool {
	for _, l := range c {
		if l.active() {
			return true
		}
	}
	return false
}

// Config maps sender names to their limits.
//
// Lookup order: config[sender] → config["*"]; within it
// limits[action] → limits["*"].
type Config map[string]SenderLimits

func (c Config) limitFor(sender, action string) *Limit {
	limits := c[sender]
	if limits == nil {
		limits = c[Wildcard]
	}
	if !limits.HasLimits() {
		return nil
	}
	if l := limits[action]; l.active() {
		return l
	}
	if l := limits[Wildcard]; l.active() {
		return l
	}
	return nil
}
