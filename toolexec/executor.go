package toolexec

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fenwick-labs/agentcore/substrate"
)

// ToolError wraps a tool's own failure for exposure to the model as the
// tool message body (spec.md §7).
type ToolError struct {
	Tool  string
	Cause error
}

func (e *ToolError) Error() string { return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Cause) }
func (e *ToolError) Unwrap() error { return e.Cause }

// PlanInterceptor is consulted before a write-classified call executes. If
// it returns handled=true, the executor skips execution and uses the
// supplied synthetic result as the tool outcome (spec.md §4.4).
type PlanInterceptor interface {
	InterceptWrite(call Call, tool Tool) (handled bool, syntheticResult any)
}

// Recorder receives per-call outcomes for loop-detection, failure
// tracking, and tracing (spec.md §4.4's "Recording" step). Implementations
// live in economics, contextwin, and tracesink; the executor only needs
// this narrow interface to stay import-cycle-free.
type Recorder interface {
	RecordOutcome(call Call, tool Tool, outcome Outcome)
}

// Executor dispatches tool calls through plan-mode interception, policy
// and safety evaluation, file claims, sandboxed execution, and parallel
// read-only batching.
type Executor struct {
	Table      *Table
	Policy     *PolicyEngine
	Safety     []SafetyGate
	Blackboard *substrate.Blackboard
	Sandbox    *Sandbox
	Plan       PlanInterceptor // nil disables plan-mode interception
	Recorder   Recorder        // nil disables recording
	AgentID    string

	log *slog.Logger
}

// NewExecutor constructs an Executor. Sandbox defaults to an in-process,
// 60s-timeout sandbox if nil.
func NewExecutor(agentID string, table *Table, policy *PolicyEngine, bb *substrate.Blackboard, sandbox *Sandbox) *Executor {
	if sandbox == nil {
		sandbox = NewSandbox(0)
	}
	return &Executor{
		AgentID:    agentID,
		Table:      table,
		Policy:     policy,
		Blackboard: bb,
		Sandbox:    sandbox,
		log:        slog.With("component", "toolexec", "agent", agentID),
	}
}

// parallelisableNames are the read-only tool categories spec.md §4.4 names
// as explicitly batchable.
var parallelisableNames = map[string]struct{}{
	"read_file": {}, "list_files": {}, "glob": {}, "grep": {}, "hash_file": {},
}

// Batch groups a sequence of calls into runs of adjacent parallelisable
// calls, separated by calls that must run serially (non-parallelisable
// tools, or any tool not in the table).
func (e *Executor) Batch(calls []Call) [][]Call {
	var batches [][]Call
	var current []Call

	flush := func() {
		if len(current) > 0 {
			batches = append(batches, current)
			current = nil
		}
	}

	for _, call := range calls {
		if e.isParallelisable(call) {
			current = append(current, call)
			continue
		}
		flush()
		batches = append(batches, []Call{call})
	}
	flush()
	return batches
}

func (e *Executor) isParallelisable(call Call) bool {
	tool, ok := e.Table.Lookup(call.Name)
	if !ok {
		return false
	}
	if _, named := parallelisableNames[call.Name]; !named {
		return false
	}
	return tool.ReadOnly()
}

// Dispatch runs every batch in Batch(calls) in order, executing calls
// within a batch concurrently via an errgroup settle-all discipline and
// batches themselves serially.
func (e *Executor) Dispatch(ctx context.Context, calls []Call, prior []PriorCall) []Outcome {
	outcomes := make([]Outcome, len(calls))
	index := make(map[string]int, len(calls))
	for i, c := range calls {
		index[c.ID] = i
	}

	for _, batch := range e.Batch(calls) {
		if len(batch) == 1 {
			outcomes[index[batch[0].ID]] = e.dispatchOne(ctx, batch[0], prior)
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		results := make([]Outcome, len(batch))
		for i, call := range batch {
			i, call := i, call
			g.Go(func() error {
				results[i] = e.dispatchOne(gctx, call, prior)
				return nil // settle-all: one failure must not cancel siblings
			})
		}
		_ = g.Wait()
		for i, call := range batch {
			outcomes[index[call.ID]] = results[i]
		}
	}

	return outcomes
}

func (e *Executor) dispatchOne(ctx context.Context, call Call, prior []PriorCall) Outcome {
	start := time.Now()
	outcome := Outcome{CallID: call.ID}

	tool, ok := e.Table.Lookup(call.Name)
	if !ok {
		outcome.Error = &ToolError{Tool: call.Name, Cause: fmt.Errorf("unknown tool")}
		return e.finish(call, nil, outcome, start)
	}

	if e.Plan != nil && tool.IsWrite() {
		if handled, synthetic := e.Plan.InterceptWrite(call, tool); handled {
			outcome.Result = synthetic
			return e.finish(call, tool, outcome, start)
		}
	}

	eval := e.Policy.Evaluate(call, prior)
	switch eval.Decision {
	case Forbidden:
		outcome.Error = &PolicyDeniedError{Tool: call.Name, Reason: eval.Reason}
		return e.finish(call, tool, outcome, start)
	case Prompt:
		// Prompt means the tool needs approval and no existing grant
		// (PolicyEngine.CreateGrant) covers this call. The executor has
		// no step that asks a human or waits for one, so the call is
		// denied outright, the same as Forbidden.
		outcome.Error = &PolicyDeniedError{Tool: call.Name, Reason: "awaiting human approval"}
		return e.finish(call, tool, outcome, start)
	}

	for _, gate := range e.Safety {
		if allowed, reason := gate.Allow(call); !allowed {
			outcome.Error = &PolicyDeniedError{Tool: call.Name, Reason: reason}
			return e.finish(call, tool, outcome, start)
		}
	}

	var claimedPath string
	if tool.IsWrite() && e.Blackboard != nil {
		if path, ok := call.Args["path"].(string); ok && path != "" {
			if err := e.Blackboard.Claim(path, e.AgentID, substrate.ClaimWrite, 0); err != nil {
				outcome.Error = err
				return e.finish(call, tool, outcome, start)
			}
			claimedPath = path
		}
	}

	callable, ok := tool.(CallableTool)
	if !ok {
		outcome.Error = &ToolError{Tool: call.Name, Cause: fmt.Errorf("tool is not callable")}
		return e.finish(call, tool, outcome, start)
	}

	result, err := e.Sandbox.Run(ctx, func(ctx context.Context) (any, error) {
		return callable.Call(ctx, call.Args)
	})
	if err != nil {
		outcome.Error = &ToolError{Tool: call.Name, Cause: err}
	} else {
		outcome.Result = result
	}

	if claimedPath != "" && outcome.Error == nil {
		e.Blackboard.Release(claimedPath, e.AgentID)
	}

	return e.finish(call, tool, outcome, start)
}

func (e *Executor) finish(call Call, tool Tool, outcome Outcome, start time.Time) Outcome {
	outcome.Duration = time.Since(start).Milliseconds()
	if outcome.Error != nil {
		e.log.Warn("tool call failed", "tool", call.Name, "error", outcome.Error)
	}
	if e.Recorder != nil && tool != nil {
		e.Recorder.RecordOutcome(call, tool, outcome)
	}
	return outcome
}
