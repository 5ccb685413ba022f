package subagent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fenwick-labs/agentcore/core"
	"github.com/fenwick-labs/agentcore/persistence"
	"github.com/fenwick-labs/agentcore/planmode"
	"github.com/fenwick-labs/agentcore/substrate"
	"github.com/fenwick-labs/agentcore/toolexec"
	"github.com/fenwick-labs/agentcore/tracesink"
)

// NewChildAgent constructs a child agent from a config and a cancellation
// parent. Injected by the caller rather than imported directly, so this
// package depends on core but core never depends back on subagent
// (spec.md's layering: spawning is a capability layered above the loop).
type NewChildAgent func(cfg core.Config, cancelParent *substrate.Token) *core.Agent

// Request describes one spawn.
type Request struct {
	Role         string
	Task         string
	Tools        []string // subset of the parent's tool names this child may use
	Constraints  string
	RequestedBudget int // tokens; allocated against the shared pool
}

// Outcome is what Spawn returns: either a successful closure report or a
// timeout/cancellation with whatever partial report could be recovered.
type Outcome struct {
	Report     Report
	FinalText  string
	Success    bool
	TimedOut   bool
	Cancelled  bool
	Metrics    core.Metrics
}

// Spawner creates, runs, and bubbles results from child agents.
type Spawner struct {
	ParentAgentID string
	Pool          *substrate.BudgetPool
	Blackboard    *substrate.Blackboard
	FileCache     *substrate.FileCache
	Parent        *substrate.Token
	NewChild      NewChildAgent
	Dedup         *DedupCache
	BaseConfig    core.Config // template the spawner tailors per request (tools filtered, prompt built)
	Trace         tracesink.Sink   // optional: emits subagent.link events
	Store         persistence.Store // optional: durable record of each spawn

	// ParentAgent, if set, has its duration clock paused for the full
	// span of the child's run (spec.md §4.5: "parent duration is paused
	// while the child runs"), so the wait doesn't eat into the parent's
	// own budget.
	ParentAgent *core.Agent

	// ParentPlan, if set, receives the child's queued writes once it
	// finishes, tagged with the child's role (spec.md §4.5 result
	// bubbling). The child runs its own plan while ParentPlan tracks the
	// parent's.
	ParentPlan *planmode.Manager

	ParentIterations int // total iterations already spent across the hierarchy

	log *slog.Logger
}

// NewSpawner constructs a Spawner. Dedup defaults to a fresh cache with
// the package default window if nil.
func NewSpawner(parentAgentID string, pool *substrate.BudgetPool, bb *substrate.Blackboard, fc *substrate.FileCache, parent *substrate.Token, newChild NewChildAgent, base core.Config) *Spawner {
	return &Spawner{
		ParentAgentID: parentAgentID,
		Pool:          pool,
		Blackboard:    bb,
		FileCache:     fc,
		Parent:        parent,
		NewChild:      newChild,
		Dedup:         NewDedupCache(0),
		BaseConfig:    base,
		log:           slog.With("component", "subagent", "parent", parentAgentID),
	}
}

// Spawn runs one child agent to completion, subject to dedup, budget
// allocation, and a graceful-timeout lifecycle linked to the parent's
// cancellation token.
func (s *Spawner) Spawn(ctx context.Context, req Request) (Outcome, error) {
	if dup, ok := s.Dedup.Check(req.Task); ok {
		s.log.Info("duplicate spawn prevented", "task", req.Task)
		return Outcome{
			Success:   true,
			FinalText: DuplicateSpawnHeader(dup),
		}, nil
	}
	pending := s.Dedup.Start(req.Task)
	defer s.Dedup.Finish(pending)

	granted, err := s.Pool.Allocate(req.RequestedBudget, 0)
	if err != nil {
		return Outcome{}, fmt.Errorf("spawn %q: %w", req.Task, err)
	}

	childID := fmt.Sprintf("%s/%s-%d", s.ParentAgentID, req.Role, time.Now().UnixNano())

	var recordID string
	if s.Store != nil {
		if rec, err := s.Store.CreateWorkerResult(ctx, s.ParentAgentID, req.Role, req.Task); err != nil {
			s.log.Warn("failed to record worker result", "error", err)
		} else {
			recordID = rec.ID
		}
	}

	cfg := s.BaseConfig
	cfg.AgentID = childID
	cfg.Tools = filterTools(s.BaseConfig.Tools, req.Tools)
	cfg.Blackboard = s.Blackboard
	cfg.FileCache = s.FileCache
	cfg.Limits.MaxTokens = granted
	cfg.ParentIterationsAtSpawn = s.ParentIterations
	cfg.SystemPrompt.DynamicMode = buildChildPrompt(req, granted)

	// The child gets its own plan, scoped to its own writes; whatever it
	// queues bubbles into the parent's plan below rather than sharing the
	// parent's queue directly.
	var childPlan *planmode.Manager
	if s.ParentPlan != nil {
		childPlan = planmode.NewManager(nil)
		childPlan.StartPlan(req.Task)
		cfg.Plan = childPlan
	}

	child := s.NewChild(cfg, s.Parent)
	child.Seed(req.Task)

	if s.ParentAgent != nil {
		s.ParentAgent.PauseBudget()
	}
	result, runErr := child.Run(ctx)
	if s.ParentAgent != nil {
		s.ParentAgent.ResumeBudget()
	}

	unused := granted
	if result != nil {
		unused -= result.Metrics.Tokens
	}
	if unused > 0 {
		s.Pool.Release(unused)
	}

	if result == nil {
		if s.Store != nil && recordID != "" {
			s.Store.FailWorkerResult(ctx, recordID, runErr.Error())
		}
		return Outcome{}, runErr
	}

	s.Dedup.RecordChange(pending, fmt.Sprintf("%s (%s)", req.Task, result.Completion.Reason))

	out := Outcome{
		FinalText: result.Response,
		Success:   result.Success,
		Cancelled: result.Completion.Reason == core.ReasonCancelled,
		Metrics:   result.Metrics,
	}
	out.TimedOut = out.Cancelled && strings.Contains(result.Completion.Details, "timeout")
	out.Report = Parse(result.Response)
	if out.Report.ExitReason == "" {
		out.Report.ExitReason = string(result.Completion.Reason)
	}

	// Fold any writes the child queued instead of executing into the
	// parent's plan, tagged with its role, whether the child finished
	// cleanly or was cancelled out from under it (spec.md §4.5).
	if childPlan != nil {
		if queued := childPlan.PendingChanges(); len(queued) > 0 {
			s.ParentPlan.MergeFromSubagent(req.Role, queued)
			out.FinalText = out.FinalText + "\n\n" + formatQueuedChanges(queued)
		}
	}

	s.emitLink(req, childID, out.Success)

	if s.Store != nil && recordID != "" {
		if out.Success {
			s.Store.CompleteWorkerResult(ctx, recordID, result.Response, map[string]any{"tokens": result.Metrics.Tokens})
		} else {
			s.Store.FailWorkerResult(ctx, recordID, result.Completion.Details)
		}
	}

	return out, nil
}

// formatQueuedChanges renders a child's queued writes as the
// "PLAN MODE - CHANGES QUEUED TO PARENT" section appended to its final
// text, so the parent sees exactly what it is being asked to approve
// without having to separately inspect the merged plan.
func formatQueuedChanges(changes []planmode.ProposedChange) string {
	var b strings.Builder
	b.WriteString("PLAN MODE - CHANGES QUEUED TO PARENT:\n")
	for i, c := range changes {
		fmt.Fprintf(&b, "%d. %s %v", i+1, c.Tool, c.Args)
		if c.Reason != "" {
			fmt.Fprintf(&b, " — %s", c.Reason)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// emitLink reports a completed spawn to the trace sink, if configured,
// tying the child's agent ID back to its role for downstream metrics.
func (s *Spawner) emitLink(req Request, childID string, success bool) {
	if s.Trace == nil {
		return
	}
	s.Trace.Emit(tracesink.Event{
		Type:        tracesink.EventSubagentLink,
		Data:        map[string]any{"role": req.Role, "success": success},
		ParentAgent: s.ParentAgentID,
		SubagentID:  childID,
	})
}

func buildChildPrompt(req Request, budget int) string {
	return fmt.Sprintf(
		"Role: %s\nConstraints: %s\nYou have a token budget of %d for this task; monitor your own "+
			"usage and wrap up before it is exhausted. Report back using the Findings/Actions "+
			"taken/Failures/Remaining work/Suggested next steps/Exit reason sections.",
		req.Role, req.Constraints, budget,
	)
}

// filterTools narrows table to the named subset a child agent is allowed
// to use; an empty names list leaves the table unrestricted.
func filterTools(table *toolexec.Table, names []string) *toolexec.Table {
	if table == nil || len(names) == 0 {
		return table
	}
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[n] = struct{}{}
	}
	var kept []toolexec.Tool
	for _, t := range table.All() {
		if _, ok := allowed[t.Name()]; ok {
			kept = append(kept, t)
		}
	}
	return toolexec.NewTable(kept...)
}
