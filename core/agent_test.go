package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenwick-labs/agentcore/contextwin"
	"github.com/fenwick-labs/agentcore/economics"
	"github.com/fenwick-labs/agentcore/llmprovider"
	"github.com/fenwick-labs/agentcore/substrate"
	"github.com/fenwick-labs/agentcore/toolexec"
)

func baseConfig() Config {
	return Config{
		AgentID:       "test-agent",
		Tools:         toolexec.NewTable(),
		Model:         "gpt-4",
		MaxIterations: 10,
		Limits: economics.Limits{
			MaxTokens:     1_000_000,
			MaxCost:       1000,
			MaxDuration:   time.Hour,
			MaxIterations: 100,
		},
		Policy: toolexec.NewPolicyEngine(),
	}
}

func TestRun_HappyPath(t *testing.T) {
	cfg := baseConfig()
	cfg.Provider = &llmprovider.ScriptedProvider{Responses: []llmprovider.Response{
		{Content: "the answer is 42", StopReason: llmprovider.StopEndTurn},
	}}
	a := NewAgent(cfg, substrate.NewRoot(context.Background()))
	a.Seed("what is the answer?")

	result, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, ReasonCompleted, result.Completion.Reason)
	assert.Equal(t, "the answer is 42", result.Response)
	assert.Equal(t, 1, result.Metrics.Iterations)
}

func TestRun_DispatchesToolCallsAndIngestsResults(t *testing.T) {
	tool := &fakeTool{name: "read_file", callFunc: func(args map[string]any) (any, error) {
		return "file contents here", nil
	}}
	cfg := baseConfig()
	cfg.Tools = toolexec.NewTable(tool)
	cfg.Provider = &llmprovider.ScriptedProvider{Responses: []llmprovider.Response{
		{
			ToolCalls:  []contextwin.ToolCall{{ID: "c1", Name: "read_file", Args: map[string]any{"path": "a.go"}}},
			StopReason: llmprovider.StopToolUse,
		},
		{Content: "done", StopReason: llmprovider.StopEndTurn},
	}}
	a := NewAgent(cfg, substrate.NewRoot(context.Background()))
	a.Seed("read a.go and summarize it")

	result, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, tool.callCount)

	var sawToolResult bool
	for _, m := range result.Messages {
		if m.Role == contextwin.RoleTool && m.ToolCallID == "c1" {
			sawToolResult = true
			assert.Contains(t, m.Text(), "file contents here")
		}
	}
	assert.True(t, sawToolResult, "expected a tool-result message for call c1")
}

func TestRun_MaxIterationsCutoff(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxIterations = 1
	loopingTool := &fakeTool{name: "noop"}
	cfg.Tools = toolexec.NewTable(loopingTool)
	cfg.Provider = &llmprovider.ScriptedProvider{Responses: []llmprovider.Response{
		{ToolCalls: []contextwin.ToolCall{{ID: "c1", Name: "noop"}}, StopReason: llmprovider.StopToolUse},
	}}
	a := NewAgent(cfg, substrate.NewRoot(context.Background()))
	a.Seed("loop forever")

	result, err := a.Run(context.Background())
	require.Error(t, err)
	var budgetErr *BudgetExceededError
	require.ErrorAs(t, err, &budgetErr)
	assert.Equal(t, "iterations", budgetErr.Kind)
	assert.False(t, result.Success)
	assert.Equal(t, ReasonError, result.Completion.Reason)
}

func TestRun_HardBudgetStopsWithoutRecovery(t *testing.T) {
	cfg := baseConfig()
	cfg.Limits.MaxDuration = 0 // unset: only tokens enforced
	cfg.Limits.MaxTokens = 1   // any usage at all trips the hard limit
	cfg.Provider = &llmprovider.ScriptedProvider{Responses: []llmprovider.Response{
		{Content: "hi", StopReason: llmprovider.StopEndTurn, Usage: llmprovider.Usage{InputTokens: 500, OutputTokens: 500}},
	}}
	a := NewAgent(cfg, substrate.NewRoot(context.Background()))
	a.Seed("say hi")

	result, err := a.Run(context.Background())
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, ReasonError, result.Completion.Reason)
}

func TestRun_CancelledBeforeFirstIteration(t *testing.T) {
	cfg := baseConfig()
	cfg.Provider = &llmprovider.ScriptedProvider{}
	root := substrate.NewRoot(context.Background())
	a := NewAgent(cfg, root)
	a.Seed("do something")
	root.Cancel(substrate.CancelByUser, "user pressed escape")

	result, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonCancelled, result.Completion.Reason)
}

func TestRun_FinishReleasesBlackboardClaims(t *testing.T) {
	cfg := baseConfig()
	bb := substrate.NewBlackboard(0)
	cfg.Blackboard = bb
	cfg.Provider = &llmprovider.ScriptedProvider{Responses: []llmprovider.Response{
		{Content: "done", StopReason: llmprovider.StopEndTurn},
	}}
	a := NewAgent(cfg, substrate.NewRoot(context.Background()))
	a.Seed("edit a file")

	// Simulates a claim left outstanding from earlier in the run (e.g. a
	// write whose own executor-side release never fired because the call
	// errored) — the executor itself has no further reason to touch this
	// path, so only finish's cleanup can drop it.
	require.NoError(t, bb.Claim("src/A.md", cfg.AgentID, substrate.ClaimWrite, 0))

	result, err := a.Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success)

	_, held := bb.HolderOf("src/A.md")
	assert.False(t, held, "agent's claims should be released once the run finishes")
}

func TestRun_EmergencyCompactionOnlyContinuesOnA20PercentReduction(t *testing.T) {
	cfg := baseConfig()
	cfg.Limits.MaxTokens = 100
	cfg.Provider = &llmprovider.ScriptedProvider{}
	a := NewAgent(cfg, substrate.NewRoot(context.Background()))
	a.Seed("what is the answer?")

	// Push usage over the hard token limit before the loop ever runs, so
	// the very first iteration's pre-LLM budget check (step 3) is what
	// trips, not the post-LLM check — this is the only point that
	// attempts emergency-compaction recovery.
	a.engine.RecordLLMUsage(100, 0, 0)

	result, err := a.Run(context.Background())
	require.Error(t, err)
	var budgetErr *BudgetExceededError
	require.ErrorAs(t, err, &budgetErr)
	assert.Equal(t, "tokens", budgetErr.Kind)
	assert.False(t, result.Success)
	// EmergencyCompact only drops tool-output bodies and old messages; a
	// two-message transcript with no tool output has nothing to shed, so
	// the 20%-reduction bar is never cleared and the run must still stop
	// on the hard limit rather than looping forever re-trying compaction.
	assert.Equal(t, 1, result.Metrics.RetryCount)
}

func TestRun_FutureIntentIsRejectedAndLoopsAgain(t *testing.T) {
	cfg := baseConfig()
	cfg.Provider = &llmprovider.ScriptedProvider{Responses: []llmprovider.Response{
		{Content: "I will now refactor the module.", StopReason: llmprovider.StopEndTurn},
		{Content: "Refactor complete.", StopReason: llmprovider.StopEndTurn},
	}}
	a := NewAgent(cfg, substrate.NewRoot(context.Background()))
	a.Seed("refactor the module")

	result, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Refactor complete.", result.Response)
	assert.Equal(t, 2, result.Metrics.Iterations)
}
