package contextwin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureTracker_RecordAndRecent(t *testing.T) {
	ft := NewFailureTracker(5)

	ft.Record("run_tests", map[string]any{"path": "a"}, "timeout")
	ft.Record("run_tests", map[string]any{"path": "b"}, "timeout")

	recent := ft.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "run_tests", recent[1].Action)
}

func TestFailureTracker_BoundedWindow(t *testing.T) {
	ft := NewFailureTracker(3)

	for i := 0; i < 5; i++ {
		ft.Record("act", map[string]any{"i": i}, "err")
	}

	assert.Len(t, ft.Recent(0), 3, "tracker must stay bounded to its configured window")
}

func TestFailureTracker_SummaryFormat(t *testing.T) {
	ft := NewFailureTracker(5)
	ft.Record("write_file", map[string]any{"path": "x.go"}, "permission_denied")

	summary := ft.Summary(2)
	assert.Contains(t, summary, "write_file")
	assert.Contains(t, summary, "permission_denied")
}

func TestFailureTracker_EmptySummary(t *testing.T) {
	ft := NewFailureTracker(5)
	assert.Empty(t, ft.Summary(2))
}
