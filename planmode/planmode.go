// Package planmode implements the pending-plan manager: a queue of
// write-classified tool calls collected instead of executed while a task
// is in plan mode, approved or rejected as a batch once the model (or a
// human) signs off.
package planmode

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fenwick-labs/agentcore/toolexec"
)

// ProposedChange is one queued write, captured instead of executed.
type ProposedChange struct {
	Tool   string
	Args   map[string]any
	Reason string
	Source string // subagent name, if the change bubbled up from one; "" for the parent's own proposals
}

// ChangeResult is the outcome of executing one approved change.
type ChangeResult struct {
	Change ProposedChange
	Result any
	Err    error
}

// Manager tracks one task's pending plan: a goal description plus the
// queue of changes proposed against it (spec.md §4.4).
type Manager struct {
	mu      sync.Mutex
	active  bool
	task    string
	changes []ProposedChange
	exec    func(call toolexec.Call) (any, error) // how approve() actually runs a change
}

// NewManager constructs a Manager. exec is how an approved change is
// actually carried out (normally toolexec.Executor.Dispatch for a single
// call, injected so planmode never imports toolexec's dispatch pipeline
// directly).
func NewManager(exec func(call toolexec.Call) (any, error)) *Manager {
	return &Manager{exec: exec}
}

// StartPlan begins a new plan for task, discarding any previous one.
func (m *Manager) StartPlan(task string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = true
	m.task = task
	m.changes = nil
}

// Active reports whether a plan is currently open.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// AddProposedChange queues a write instead of letting it execute,
// implementing the bulk of InterceptWrite's contract.
func (m *Manager) AddProposedChange(tool string, args map[string]any, reason, source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, ProposedChange{Tool: tool, Args: args, Reason: reason, Source: source})
}

// InterceptWrite implements toolexec.PlanInterceptor: while a plan is
// active, every write-classified call is queued and answered with the
// synthetic result "queued for approval: <tool> (PLAN MODE - CHANGES
// QUEUED TO PARENT)" instead of running.
func (m *Manager) InterceptWrite(call toolexec.Call, tool toolexec.Tool) (handled bool, syntheticResult any) {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()
	if !active {
		return false, nil
	}

	reason, _ := call.Args["reason"].(string)
	m.AddProposedChange(call.Name, call.Args, reason, "")
	return true, fmt.Sprintf("queued for approval: %s (PLAN MODE - CHANGES QUEUED TO PARENT)", call.Name)
}

// FormatPlan renders the pending queue for display to a human or a
// parent agent deciding whether to approve.
func (m *Manager) FormatPlan() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Plan: %s\n", m.task)
	if len(m.changes) == 0 {
		b.WriteString("(no changes queued)")
		return b.String()
	}
	for i, c := range m.changes {
		fmt.Fprintf(&b, "%d. %s %v", i+1, c.Tool, c.Args)
		if c.Reason != "" {
			fmt.Fprintf(&b, " — %s", c.Reason)
		}
		if c.Source != "" {
			fmt.Fprintf(&b, " [%s]", c.Source)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Approve executes up to count queued changes in order (0 means all),
// collecting every result/error rather than aborting on the first
// failure. The executed changes leave the queue; any others stay queued,
// and the plan closes once the queue is empty.
func (m *Manager) Approve(count int) []ChangeResult {
	m.mu.Lock()
	changes := m.changes
	if count > 0 && count < len(changes) {
		changes = changes[:count]
	}
	m.changes = m.changes[len(changes):]
	if len(m.changes) == 0 {
		m.active = false
	}
	exec := m.exec
	m.mu.Unlock()

	results := make([]ChangeResult, len(changes))
	for i, c := range changes {
		res, err := exec(toolexec.Call{Name: c.Tool, Args: c.Args})
		results[i] = ChangeResult{Change: c, Result: res, Err: err}
	}
	return results
}

// Reject discards the pending plan without executing anything.
func (m *Manager) Reject() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
	m.changes = nil
}

// Clear is an alias for Reject used when a task completes normally and
// the plan (approved or not) no longer needs to be tracked.
func (m *Manager) Clear() { m.Reject() }

// MergeFromSubagent folds a subagent's queued changes into this plan,
// tagging each with the subagent's name so FormatPlan attributes them
// (spec.md §4.2's "[agentName]-prefixed reasons" bubbling rule).
func (m *Manager) MergeFromSubagent(agentName string, changes []ProposedChange) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range changes {
		c.Source = agentName
		c.Reason = fmt.Sprintf("[%s] %s", agentName, c.Reason)
		m.changes = append(m.changes, c)
	}
}

// PendingChanges returns a copy of the current queue, e.g. for a parent
// merging a subagent's plan into its own.
func (m *Manager) PendingChanges() []ProposedChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ProposedChange{}, m.changes...)
}
