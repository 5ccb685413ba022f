package core

import (
	"log/slog"
	"strings"
	"time"

	"github.com/fenwick-labs/agentcore/contextwin"
	"github.com/fenwick-labs/agentcore/economics"
	"github.com/fenwick-labs/agentcore/substrate"
	"github.com/fenwick-labs/agentcore/toolexec"
	"github.com/fenwick-labs/agentcore/tracesink"
)

// Agent runs the execution loop against one configuration. It is not safe
// for concurrent Run calls on the same instance; spawn a new Agent per
// concurrent task (subagents each get their own).
type Agent struct {
	cfg Config

	engine   *economics.Engine
	failures *contextwin.FailureTracker
	executor *toolexec.Executor
	timeout  *substrate.GracefulTimeout
	tokens   *contextwin.TokenCounter

	messages []contextwin.Message
	prior    []toolexec.PriorCall

	plan         PlanStatus
	wrappingUp   bool
	log          *slog.Logger
}

// PlanStatus mirrors contextwin.PlanStatus; kept as a core type so callers
// configuring an Agent don't need to reach into contextwin directly for
// the common fields they update as a task progresses.
type PlanStatus = contextwin.PlanStatus

// NewAgent constructs an Agent ready to Run. cancelParent roots the
// agent's cancellation token tree; pass substrate.NewRoot(ctx) for a
// top-level agent, or a parent's token for a subagent.
func NewAgent(cfg Config, cancelParent *substrate.Token) *Agent {
	cfg.setDefaults()

	engine := economics.New(cfg.Limits)
	failures := contextwin.NewFailureTracker(0)
	tokens, err := contextwin.NewTokenCounter(cfg.Model)
	if err != nil {
		slog.Warn("falling back to cl100k_base token counter", "model", cfg.Model, "error", err)
		tokens, _ = contextwin.NewTokenCounter("cl100k_base")
	}

	forward := cfg.Recorder
	rec := newEngineRecorder(engine, failures, forward)

	executor := toolexec.NewExecutor(cfg.AgentID, cfg.Tools, cfg.Policy, cfg.Blackboard, cfg.Sandbox)
	executor.Plan = cfg.Plan
	executor.Recorder = rec

	var timeout *substrate.GracefulTimeout
	if cancelParent != nil && cfg.Limits.MaxDuration > 0 {
		timeout = substrate.NewGracefulTimeout(cancelParent, cfg.Limits.MaxDuration, wrapupWindow(cfg.Limits.MaxDuration))
	}

	a := &Agent{
		cfg:      cfg,
		engine:   engine,
		failures: failures,
		executor: executor,
		timeout:  timeout,
		tokens:   tokens,
		log:      slog.With("component", "core", "agent", cfg.AgentID),
	}

	if a.timeout != nil {
		a.timeout.OnWrapupWarning(func() {
			a.wrappingUp = true
		})
	}

	return a
}

// wrapupWindow picks a wrap-up window proportional to the total budget:
// 10%, floored at 5s and capped at 2 minutes.
func wrapupWindow(total time.Duration) time.Duration {
	w := total / 10
	if w < 5*time.Second {
		w = 5 * time.Second
	}
	if w > 2*time.Minute {
		w = 2 * time.Minute
	}
	return w
}

// Messages returns the agent's current transcript (a copy is not made;
// callers must not mutate the returned slice's elements).
func (a *Agent) Messages() []contextwin.Message { return a.messages }

// SetPlan updates the recitation state (goal, plan steps, active files,
// recent failures) consulted when context grows long enough to trigger
// recitation injection. Callers update this as the task's plan evolves.
func (a *Agent) SetPlan(p PlanStatus) { a.plan = p }

// PauseBudget stops this agent's duration clock. A caller that blocks on
// something outside the loop's control on this agent's behalf — a
// subagent run, a human approval wait — pairs this with ResumeBudget so
// the wait doesn't count against the agent's own duration budget.
func (a *Agent) PauseBudget() { a.engine.PauseDuration() }

// ResumeBudget restarts the duration clock paused by PauseBudget.
func (a *Agent) ResumeBudget() { a.engine.ResumeDuration() }

// BudgetDuration returns this agent's accumulated duration usage,
// excluding any currently-paused span. Mainly useful to callers (and
// tests) verifying that a pause/resume bracket actually excluded the
// time it wrapped.
func (a *Agent) BudgetDuration() time.Duration {
	_, _, _, d := a.engine.Usage().Snapshot()
	return d
}

// Seed sets the initial transcript: an assembled system prompt from the
// configured sections, followed by the user's task.
func (a *Agent) Seed(userTask string) {
	a.messages = []contextwin.Message{
		contextwin.AssembleSystemPrompt(a.cfg.SystemPrompt),
		contextwin.NewText(contextwin.RoleUser, userTask),
	}
}

// recordToolHistory appends to the policy-evaluation history window,
// capped to the last 50 calls so PriorCall lookups stay cheap.
func (a *Agent) recordToolHistory(calls []toolexec.Call) {
	for _, c := range calls {
		a.prior = append(a.prior, toolexec.PriorCall{Name: c.Name, Args: c.Args})
	}
	const cap = 50
	if len(a.prior) > cap {
		a.prior = a.prior[len(a.prior)-cap:]
	}
}

// looksLikeFutureIntent is the default FutureIntentDetector used when the
// caller does not configure one: a small set of phrasings the teacher's
// completion-gate checks for, generalized from plan-mode/task-manager
// phrasing patterns rather than a single regex.
func looksLikeFutureIntent(text string) bool {
	lower := strings.ToLower(text)
	phrases := []string{
		"i will now", "i'll now", "next i will", "i will then",
		"i'm going to now", "let me now", "i will proceed to",
	}
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func (a *Agent) detectFutureIntent(text string) bool {
	if a.cfg.DetectFutureIntent != nil {
		return a.cfg.DetectFutureIntent(text)
	}
	return looksLikeFutureIntent(text)
}

func (a *Agent) hasOpenTasks() bool {
	if a.cfg.TaskManager == nil {
		return false
	}
	return a.cfg.TaskManager.HasOpenTasks()
}

func (a *Agent) swarmFailed() (bool, string) {
	if a.cfg.SwarmReporter == nil {
		return false, ""
	}
	ok, detail := a.cfg.SwarmReporter.Succeeded()
	return !ok, detail
}

// emit reports ev to the configured trace sink, if any, filling in the
// fields every event shares so call sites only set what's specific to them.
func (a *Agent) emit(evType tracesink.EventType, iteration int, data map[string]any) {
	if a.cfg.Trace == nil {
		return
	}
	a.cfg.Trace.Emit(tracesink.Event{
		Type:      evType,
		Data:      data,
		SessionID: a.cfg.SessionID,
		TaskID:    a.cfg.TaskID,
		Iteration: iteration,
	})
}
