package tracesink

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenwick-labs/agentcore/toolexec"
)

func TestMemorySink_RecordsEventsInOrder(t *testing.T) {
	s := NewMemorySink()
	s.Emit(Event{Type: EventIterationStart, Iteration: 1})
	s.Emit(Event{Type: EventIterationEnd, Iteration: 1})

	events := s.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventIterationStart, events[0].Type)
	assert.Equal(t, EventIterationEnd, events[1].Type)
}

func TestMultiSink_FansOutToEverySink(t *testing.T) {
	a := NewMemorySink()
	b := NewMemorySink()
	m := NewMultiSink(a, b)

	m.Emit(Event{Type: EventDecision})

	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

func TestRecorder_RecordOutcomeEmitsToolEndEvent(t *testing.T) {
	sink := NewMemorySink()
	rec := NewRecorder(sink, "sess-1", "task-1")

	rec.RecordOutcome(
		toolexec.Call{Name: "write_file"},
		nil,
		toolexec.Outcome{Error: errors.New("disk full")},
	)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventToolEnd, events[0].Type)
	assert.Equal(t, "write_file", events[0].Data["tool"])
	assert.Equal(t, false, events[0].Data["success"])
	assert.Equal(t, "disk full", events[0].Data["error"])
}
