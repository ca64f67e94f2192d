// Package quota bounds the number of external completion calls one
// orchestration run may issue.
package quota

import (
	"fmt"
	"sync"
)

// DefaultCeiling covers four debate rounds of five personas plus the
// aggregation call, with headroom.
const DefaultCeiling = 45

// State is the tracker's budget state. Exhausted states are terminal.
type State int

const (
	Available State = iota
	ExhaustedByCeiling
	ExhaustedBySignal
)

func (s State) String() string {
	switch s {
	case Available:
		return "available"
	case ExhaustedByCeiling:
		return "exhausted_by_ceiling"
	case ExhaustedBySignal:
		return "exhausted_by_signal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Tracker counts calls against a fixed ceiling. A Tracker belongs to exactly
// one run; it is safe for concurrent use by the personas of that run.
type Tracker struct {
	mu      sync.Mutex
	calls   int
	ceiling int
	state   State
}

// New returns a tracker allowing up to ceiling calls. A ceiling <= 0 starts
// exhausted.
func New(ceiling int) *Tracker {
	if ceiling < 0 {
		ceiling = 0
	}
	t := &Tracker{ceiling: ceiling}
	if ceiling == 0 {
		t.state = ExhaustedByCeiling
	}
	return t
}

// HasBudget reports whether another call may be issued.
func (t *Tracker) HasBudget() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == Available
}

// TryConsume checks for budget and consumes one unit in a single step.
// It returns false without consuming when the tracker is exhausted.
func (t *Tracker) TryConsume() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Available {
		return false
	}
	t.consumeLocked()
	return true
}

// Consume increments the counter unconditionally. Callers are expected to
// have checked HasBudget first; TryConsume is preferred.
func (t *Tracker) Consume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consumeLocked()
}

func (t *Tracker) consumeLocked() {
	t.calls++
	if t.state == Available && t.calls >= t.ceiling {
		t.state = ExhaustedByCeiling
	}
}

// Latch marks the tracker exhausted because the provider reported a quota
// or rate-limit failure. The counter is left untouched.
func (t *Tracker) Latch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Available || t.state == ExhaustedByCeiling {
		t.state = ExhaustedBySignal
	}
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Calls returns how many calls were consumed.
func (t *Tracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

func (t *Tracker) Ceiling() int { return t.ceiling }
