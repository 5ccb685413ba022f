// Package core implements the agent execution loop: the iteration cycle
// that calls the LLM, dispatches tool calls, and ingests results, wired to
// the budget/loop-detection engine, the shared substrate, context
// engineering, and plan-mode interception.
package core

import (
	"time"

	"github.com/fenwick-labs/agentcore/contextwin"
	"github.com/fenwick-labs/agentcore/economics"
	"github.com/fenwick-labs/agentcore/llmprovider"
	"github.com/fenwick-labs/agentcore/substrate"
	"github.com/fenwick-labs/agentcore/toolexec"
	"github.com/fenwick-labs/agentcore/tracesink"
)

// CompletionReason is why a run ended (spec.md §7).
type CompletionReason string

const (
	ReasonCompleted       CompletionReason = "completed"
	ReasonFutureIntent    CompletionReason = "future_intent"
	ReasonOpenTasks       CompletionReason = "open_tasks"
	ReasonCancelled       CompletionReason = "cancelled"
	ReasonSwarmFailure    CompletionReason = "swarm_failure"
	ReasonIncompleteAction CompletionReason = "incomplete_action"
	ReasonError           CompletionReason = "error"
)

// Recovery records how many intra-run recovery attempts a run made
// (spec.md §7's completion record).
type Recovery struct {
	IntraRunRetries int
	AutoLoopRuns    int
	Terminal        bool
	ReasonChain     []string
}

// Completion is the terminal-outcome record spec.md §7 requires.
type Completion struct {
	Reason   CompletionReason
	Details  string
	Recovery Recovery
}

// Metrics is the mutable per-run accounting surfaced in AgentResult.
type Metrics struct {
	Tokens     int
	Cost       float64
	Duration   time.Duration
	Iterations int
	ToolCalls  int
	RetryCount int
}

// Result is the execution loop's output (spec.md §4.1).
type Result struct {
	Success    bool
	Response   string
	Messages   []contextwin.Message
	Metrics    Metrics
	OpenTasks  []string
	Completion Completion
}

// TaskManager reports whether any tracked tasks remain pending or
// in-progress; a capability an agent may or may not have configured
// (spec.md §9's "capability traits behind a registry").
type TaskManager interface {
	HasOpenTasks() bool
}

// SwarmReporter reports whether a decomposed parallel workflow, if used,
// completed successfully. Optional capability, same as TaskManager.
type SwarmReporter interface {
	Succeeded() (bool, string)
}

// FutureIntentDetector flags text like "I'll now do X" that should not be
// accepted as a final answer.
type FutureIntentDetector func(text string) bool

// Config is the agent constructor's recognised-options record (spec.md §6).
type Config struct {
	AgentID      string
	Provider     llmprovider.Provider
	Tools        *toolexec.Table
	Model        string
	MaxIterations int
	MaxContextTokens int
	SystemPrompt contextwin.PromptSections

	Limits economics.Limits

	Blackboard *substrate.Blackboard
	FileCache  *substrate.FileCache
	BudgetPool *substrate.BudgetPool
	CancelRoot *substrate.Token

	Policy  *toolexec.PolicyEngine
	Sandbox *toolexec.Sandbox
	Plan    toolexec.PlanInterceptor
	Recorder toolexec.Recorder

	ParentIterationsAtSpawn int // spec.md §4.2: total iterations across hierarchy

	TaskManager   TaskManager
	SwarmReporter SwarmReporter
	DetectFutureIntent FutureIntentDetector

	MaxEmptyRetries   int // R1, default 2
	MaxContinuations  int // R2, default 3
	MaxToolOutputChars int // default ~8KB

	Trace     tracesink.Sink // optional: iteration/LLM events, separate from Recorder's tool outcomes
	SessionID string
	TaskID    string
}

func (c *Config) setDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 50
	}
	if c.MaxContextTokens <= 0 {
		c.MaxContextTokens = 128_000
	}
	if c.MaxEmptyRetries <= 0 {
		c.MaxEmptyRetries = 2
	}
	if c.MaxContinuations <= 0 {
		c.MaxContinuations = 3
	}
	if c.MaxToolOutputChars <= 0 {
		c.MaxToolOutputChars = 8192
	}
}
