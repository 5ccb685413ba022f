package economics

import (
	"fmt"
	"log/slog"
	"sync"
)

// ToolOutcome is the minimal shape the engine needs to know about a
// completed tool call to update its windows.
type ToolOutcome struct {
	ToolName string
	Args     map[string]any
	IsRead   bool
	IsWrite  bool
	FilePath string
	Err      error
}

// Engine is the budget + loop-detection engine described in spec.md §4.2.
// One Engine is owned per agent instance; subagents get their own Engine
// constructed against a constrained slice of the parent's budget pool.
type Engine struct {
	mu     sync.Mutex
	limits Limits
	usage  *Usage
	loop   *loopState
	log    *slog.Logger

	// emergencyCompactionUsed guards the single-shot recovery described in
	// spec.md §9 (Open Questions): a second compaction is never attempted
	// automatically in the same run.
	emergencyCompactionUsed bool
}

// New constructs an Engine with the given limits. The duration clock is
// started immediately.
func New(limits Limits) *Engine {
	u := &Usage{}
	u.Start()
	return &Engine{
		limits: limits,
		usage:  u,
		loop:   newLoopState(),
		log:    slog.With("component", "economics"),
	}
}

// Usage exposes the underlying counters (read-mostly; mutation goes through
// RecordLLMUsage/RecordToolCall).
func (e *Engine) Usage() *Usage { return e.usage }

// Limits returns the configured limits.
func (e *Engine) Limits() Limits { return e.limits }

// RecordLLMUsage folds one LLM call's token/cost usage into the budget and
// resets the stuck-detection idle timer (an LLM response is a progress
// signal per spec.md §4.2).
func (e *Engine) RecordLLMUsage(inputTokens, outputTokens int, cost float64) {
	e.usage.AddTokens(inputTokens + outputTokens)
	e.usage.AddCost(cost)

	e.mu.Lock()
	e.loop.recordProgress()
	e.mu.Unlock()
}

// RecordToolCall updates the loop-detection windows for a completed tool
// dispatch and returns any nudge the engine wants injected as a user
// message on the next iteration. Every dispatch enters the doom-loop
// window; a file read with a path is also added to the file-read set, so
// such a read updates two windows.
func (e *Engine) RecordToolCall(outcome ToolOutcome) (nudge string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doomLoop, repeated, saturated := e.loop.recordToolCall(
		outcome.ToolName, outcome.Args, outcome.IsRead, outcome.IsWrite, outcome.FilePath,
	)

	switch {
	case doomLoop:
		e.log.Warn("doom loop detected", "tool", outcome.ToolName)
		return fmt.Sprintf(
			"You have made a repeated call to %s. Do not repeat that exact call again; "+
				"change your approach or move to a different action.", repeated,
		)
	case saturated:
		e.log.Info("exploration saturation reached, nudging toward acting phase")
		return "You have read many files without making any changes. Switch to synthesis: " +
			"either make the necessary edits or give a concrete final answer."
	default:
		return ""
	}
}

// TickIdle advances the stuck-detection idle counter by one iteration.
// Call this once per loop iteration in which no tool call and no new LLM
// progress occurred (see core's execution loop).
func (e *Engine) TickIdle() (nudge string) {
	e.mu.Lock()
	stuck := e.loop.tickIdle()
	e.mu.Unlock()
	if stuck {
		return "No progress has been made in several iterations. Either take a concrete " +
			"action (read, edit, run a command) or provide your final answer now."
	}
	return ""
}

// CheckBudget evaluates all four limits at soft (70%) and hard (100%)
// thresholds. Hard-limit tokens/cost breaches are recoverable exactly once
// via emergency compaction by the caller (core's execution loop); the
// engine only reports whether that recovery has already been spent.
func (e *Engine) CheckBudget() Status {
	tokens, cost, iterations, duration := e.usage.Snapshot()

	type check struct {
		kind    Kind
		used    float64
		limit   float64
	}
	checks := []check{
		{KindTokens, float64(tokens), float64(e.limits.MaxTokens)},
		{KindCost, cost, e.limits.MaxCost},
		{KindDuration, float64(duration), float64(e.limits.MaxDuration)},
		{KindIterations, float64(iterations), float64(e.limits.MaxIterations)},
	}

	for _, c := range checks {
		if c.limit <= 0 {
			continue // unset limit, not enforced
		}
		pct := c.used / c.limit
		if pct >= 1.0 {
			return Status{
				CanContinue: false,
				Reason:      c.kind,
				Percent:     pct,
			}
		}
	}

	for _, c := range checks {
		if c.limit <= 0 {
			continue
		}
		pct := c.used / c.limit
		if pct >= SoftLimitFraction {
			return Status{
				CanContinue:    true,
				Reason:         c.kind,
				Percent:        pct,
				IsSoftLimit:    true,
				InjectedPrompt: softLimitPrompt(c.kind, iterations, e.limits),
			}
		}
	}

	return Status{CanContinue: true}
}

func softLimitPrompt(kind Kind, iterations int, limits Limits) string {
	switch kind {
	case KindTokens:
		return "You are approaching the token budget for this task. Start wrapping up: " +
			"finish any in-progress edits and prepare a final answer."
	case KindCost:
		return "You are approaching the cost budget for this task. Start wrapping up."
	case KindDuration:
		return "You are approaching the time budget for this task. Start wrapping up."
	case KindIterations:
		return fmt.Sprintf(
			"You have used most of your iteration budget (%d of %d). Start wrapping up.",
			iterations, limits.MaxIterations,
		)
	default:
		return "You are approaching a resource limit. Start wrapping up."
	}
}

// TryEmergencyCompaction reports whether the single-shot emergency
// compaction recovery (spec.md §4.1 step 3) may still be attempted in this
// run, and marks it spent if so. Subsequent calls always return false,
// matching spec.md §9's decision to treat the guard as single-shot.
func (e *Engine) TryEmergencyCompaction() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.emergencyCompactionUsed {
		return false
	}
	e.emergencyCompactionUsed = true
	return true
}

// ExtendBudget raises the configured limits by delta (used when a parent
// grants a child additional runway, or when a human extends a run).
func (e *Engine) ExtendBudget(delta Limits) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.limits.MaxTokens += delta.MaxTokens
	e.limits.MaxCost += delta.MaxCost
	e.limits.MaxDuration += delta.MaxDuration
	e.limits.MaxIterations += delta.MaxIterations
}

// Reset clears usage counters and loop-detection state but keeps limits.
// Used when a long-lived agent starts a fresh task.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.usage = &Usage{}
	e.usage.Start()
	e.loop = newLoopState()
	e.emergencyCompactionUsed = false
}

// PauseDuration/ResumeDuration expose the duration clock for external I/O
// waits (approval gates, subagent execution) per spec.md §3.
func (e *Engine) PauseDuration()  { e.usage.Pause() }
func (e *Engine) ResumeDuration() { e.usage.Resume() }

// Phase returns the current exploration/acting phase label.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loop.phase
}
