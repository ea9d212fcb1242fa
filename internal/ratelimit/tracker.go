package ratelimit

import (
	"sync"
	"time"
)

// window counts calls per action since Start.
type window struct {
	Start  time.Time
	Counts map[string]int
}

// Tracker holds one fixed window per sender.
type Tracker struct {
	mu      sync.Mutex
	windows map[string]*window
}

func NewTracker() *Tracker {
	return &Tracker{windows: make(map[string]*window)}
}

// snapshot reads the current call count of action for sender.
// If the window has expired, all of the sender's counters and the window
// start are reset.
func (t *Tracker) snapshot(sender, action string, length time.Duration, now time.Time) int {
	w := t.windows[sender]
	if w == nil {
		w = &window{Start: now, Counts: make(map[string]int)}
		t.windows[sender] = w
	}
	if now.Sub(w.Start) >= length {
		w.Counts = make(map[string]int)
		w.Start = now
	}
	return w.Counts[action]
}

func (t *Tracker) increment(sender, action string) {
	t.windows[sender].Counts[action]++
}
