package core

import "fmt"

// BudgetExceededError is returned when a hard resource limit is hit and no
// recovery (emergency compaction, wrap-up) remains available.
type BudgetExceededError struct {
	Kind    string
	Percent float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: %s at %.0f%%", e.Kind, e.Percent*100)
}

// IncompleteActionError marks a final-looking assistant turn that still
// references unfinished work (spec.md §4.1 step 12: future-intent
// language, or tool calls truncated mid-argument by a max_tokens cutoff).
type IncompleteActionError struct {
	Detail string
}

func (e *IncompleteActionError) Error() string {
	return "incomplete action: " + e.Detail
}

// CheckpointInvalidError is returned when a resumed run's checkpoint
// cannot be reconciled with the current configuration (tool table
// mismatch, schema version mismatch).
type CheckpointInvalidError struct {
	Detail string
}

func (e *CheckpointInvalidError) Error() string {
	return "invalid checkpoint: " + e.Detail
}
