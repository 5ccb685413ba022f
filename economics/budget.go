// Package economics implements the budget and loop-detection engine: the
// continuous accounting of tokens, cost, duration, and iterations against
// configured limits, and the heuristics that detect doom loops, exploration
// saturation, and stuck agents.
package economics

import (
	"sync"
	"time"
)

// Limits are the hard/soft thresholds an Engine enforces.
type Limits struct {
	MaxTokens        int
	MaxCost          float64
	MaxDuration      time.Duration
	MaxIterations    int
	TargetIterations int
}

// SoftLimitFraction is the fraction of a limit at which the engine emits an
// advisory and begins nudging the agent to wrap up.
const SoftLimitFraction = 0.70

// Usage is the monotonic (mostly) accounting of what an agent has spent.
// Duration is monotone non-decreasing except while paused, per spec.md §8.
type Usage struct {
	mu         sync.Mutex
	Tokens     int
	Cost       float64
	Iterations int

	duration   time.Duration
	running    bool
	lastResume time.Time
}

// Start begins duration accounting. Safe to call once at agent construction.
func (u *Usage) Start() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.running {
		u.running = true
		u.lastResume = time.Now()
	}
}

// Pause stops the duration clock (used while awaiting approval or a subagent).
func (u *Usage) Pause() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.running {
		u.duration += time.Since(u.lastResume)
		u.running = false
	}
}

// Resume restarts the duration clock after a Pause.
func (u *Usage) Resume() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.running {
		u.running = true
		u.lastResume = time.Now()
	}
}

// Duration returns total elapsed duration, including the currently-running
// span if the clock is not paused.
func (u *Usage) Duration() time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()
	d := u.duration
	if u.running {
		d += time.Since(u.lastResume)
	}
	return d
}

// AddTokens adds to the monotonic token counter.
func (u *Usage) AddTokens(n int) {
	u.mu.Lock()
	u.Tokens += n
	u.mu.Unlock()
}

// AddCost adds to the monotonic cost counter.
func (u *Usage) AddCost(c float64) {
	u.mu.Lock()
	u.Cost += c
	u.mu.Unlock()
}

// NextIteration increments and returns the new iteration count.
func (u *Usage) NextIteration() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Iterations++
	return u.Iterations
}

// Snapshot returns a consistent copy of the counters (duration included).
func (u *Usage) Snapshot() (tokens int, cost float64, iterations int, duration time.Duration) {
	u.mu.Lock()
	tokens, cost, iterations = u.Tokens, u.Cost, u.Iterations
	u.mu.Unlock()
	return tokens, cost, iterations, u.Duration()
}

// Kind identifies which limit a budget check failed against.
type Kind string

const (
	KindTokens     Kind = "tokens"
	KindCost       Kind = "cost"
	KindDuration   Kind = "duration"
	KindIterations Kind = "iterations"
)

// Status is the result of a budget check, matching spec.md §4.2's
// check_budget contract.
type Status struct {
	CanContinue     bool
	Reason          Kind
	Percent         float64
	InjectedPrompt  string
	ForceTextOnly   bool
	IsSoftLimit     bool
}
