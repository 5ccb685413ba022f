package toolexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenwick-labs/agentcore/substrate"
)

func newTestExecutor(tools ...Tool) *Executor {
	table := NewTable(tools...)
	policy := NewPolicyEngine()
	bb := substrate.NewBlackboard(0)
	return NewExecutor("agent-1", table, policy, bb, NewSandbox(0))
}

func TestExecutor_DispatchAllowedCall(t *testing.T) {
	tool := &fakeTool{name: "read_file", readOnly: true}
	exec := newTestExecutor(tool)

	outcomes := exec.Dispatch(context.Background(), []Call{{ID: "1", Name: "read_file", Args: map[string]any{"path": "a.go"}}}, nil)

	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Error)
	assert.Equal(t, "ok", outcomes[0].Result)
}

func TestExecutor_UnknownToolErrors(t *testing.T) {
	exec := newTestExecutor()

	outcomes := exec.Dispatch(context.Background(), []Call{{ID: "1", Name: "nope"}}, nil)

	require.Len(t, outcomes, 1)
	require.Error(t, outcomes[0].Error)
}

func TestExecutor_ForbiddenToolDenied(t *testing.T) {
	tool := &fakeTool{name: "rm_rf"}
	exec := newTestExecutor(tool)
	exec.Policy.Forbid("rm_rf", "too dangerous")

	outcomes := exec.Dispatch(context.Background(), []Call{{ID: "1", Name: "rm_rf"}}, nil)

	require.Error(t, outcomes[0].Error)
	var denied *PolicyDeniedError
	require.ErrorAs(t, outcomes[0].Error, &denied)
}

func TestExecutor_WriteClaimsAndReleasesPath(t *testing.T) {
	tool := &fakeTool{name: "write_file", write: true}
	exec := newTestExecutor(tool)

	outcomes := exec.Dispatch(context.Background(), []Call{{ID: "1", Name: "write_file", Args: map[string]any{"path": "a.go"}}}, nil)
	require.NoError(t, outcomes[0].Error)

	_, held := exec.Blackboard.HolderOf("a.go")
	assert.False(t, held, "successful write should release its claim")
}

func TestExecutor_WriteClaimConflict(t *testing.T) {
	tool := &fakeTool{name: "write_file", write: true, callFunc: func(ctx context.Context, args map[string]any) (any, error) {
		return "ok", nil
	}}
	exec := newTestExecutor(tool)

	require.NoError(t, exec.Blackboard.Claim("a.go", "other-agent", substrate.ClaimWrite, 0))

	outcomes := exec.Dispatch(context.Background(), []Call{{ID: "1", Name: "write_file", Args: map[string]any{"path": "a.go"}}}, nil)

	require.Error(t, outcomes[0].Error)
	var conflict *substrate.ClaimConflictError
	require.ErrorAs(t, outcomes[0].Error, &conflict)
	assert.Equal(t, "other-agent", conflict.Holder)
}

func TestExecutor_PlanModeInterceptsWrites(t *testing.T) {
	tool := &fakeTool{name: "write_file", write: true}
	exec := newTestExecutor(tool)
	exec.Plan = &fakeInterceptor{result: "change queued"}

	outcomes := exec.Dispatch(context.Background(), []Call{{ID: "1", Name: "write_file", Args: map[string]any{"path": "a.go"}}}, nil)

	require.NoError(t, outcomes[0].Error)
	assert.Equal(t, "change queued", outcomes[0].Result)
	assert.Equal(t, 0, tool.callCount, "intercepted write must not actually execute")
}

type fakeInterceptor struct{ result any }

func (f *fakeInterceptor) InterceptWrite(call Call, tool Tool) (bool, any) {
	return true, f.result
}

func TestExecutor_BatchGroupsAdjacentParallelisableCalls(t *testing.T) {
	exec := newTestExecutor(
		&fakeTool{name: "read_file", readOnly: true},
		&fakeTool{name: "write_file", write: true},
		&fakeTool{name: "grep", readOnly: true},
	)

	batches := exec.Batch([]Call{
		{ID: "1", Name: "read_file"},
		{ID: "2", Name: "grep"},
		{ID: "3", Name: "write_file"},
		{ID: "4", Name: "read_file"},
	})

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 1)
	assert.Len(t, batches[2], 1)
}
