package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLStore(db, "sqlite")
	require.NoError(t, err)
	return store
}

func TestCreateWorkerResult_StartsInRunningState(t *testing.T) {
	s := newTestStore(t)
	wr, err := s.CreateWorkerResult(context.Background(), "parent-1", "investigator", "find the bug")
	require.NoError(t, err)
	assert.Equal(t, StateRunning, wr.State)
	assert.NotEmpty(t, wr.ID)
}

func TestCompleteWorkerResult_UpdatesStateAndReport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	wr, err := s.CreateWorkerResult(ctx, "parent-1", "worker", "do a thing")
	require.NoError(t, err)

	require.NoError(t, s.CompleteWorkerResult(ctx, wr.ID, "Findings: done", map[string]any{"tokens": 123}))

	got, err := s.GetWorkerResult(ctx, wr.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, got.State)
	assert.Equal(t, "Findings: done", got.Report)
	assert.Equal(t, float64(123), got.Metadata["tokens"])
}

func TestFailWorkerResult_RecordsError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	wr, err := s.CreateWorkerResult(ctx, "parent-1", "worker", "do a thing")
	require.NoError(t, err)

	require.NoError(t, s.FailWorkerResult(ctx, wr.ID, "budget exhausted"))

	got, err := s.GetWorkerResult(ctx, wr.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, got.State)
	assert.Equal(t, "budget exhausted", got.Error)
}

func TestListWorkerResultsByParent_ReturnsOnlyMatchingParent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateWorkerResult(ctx, "parent-1", "a", "task a")
	require.NoError(t, err)
	_, err = s.CreateWorkerResult(ctx, "parent-2", "b", "task b")
	require.NoError(t, err)

	results, err := s.ListWorkerResultsByParent(ctx, "parent-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Role)
}

func TestGetWorkerResult_UnknownIDErrors(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetWorkerResult(context.Background(), "does-not-exist")
	assert.Error(t, err)
}
