package tracesink

import (
	"sync"

	"github.com/fenwick-labs/agentcore/toolexec"
)

// Sink accepts trace events. Emit must be safe to call concurrently: an
// iteration loop, its subagents, and their own tool dispatch can all emit
// at once.
type Sink interface {
	Emit(Event)
}

// FlushableSink is a Sink that buffers and needs an explicit drain, e.g.
// before process exit.
type FlushableSink interface {
	Sink
	Flush() error
}

// MemorySink keeps every event it has seen, for tests and local debugging.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink constructs an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Emit appends ev under lock.
func (s *MemorySink) Emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a snapshot copy of everything recorded so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event{}, s.events...)
}

// MultiSink fans one event out to several sinks, e.g. a MemorySink for
// tests alongside an OTel-backed sink in production.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink constructs a MultiSink over the given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Emit fans ev out to every underlying sink.
func (m *MultiSink) Emit(ev Event) {
	for _, s := range m.sinks {
		s.Emit(ev)
	}
}

// Flush drains every underlying sink that supports it, returning the
// first error encountered (after attempting all of them).
func (m *MultiSink) Flush() error {
	var first error
	for _, s := range m.sinks {
		if f, ok := s.(FlushableSink); ok {
			if err := f.Flush(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// Recorder adapts a Sink to toolexec.Recorder so a tool dispatch loop can
// report directly into the trace stream alongside engineRecorder's
// economics/contextwin fan-out.
type Recorder struct {
	Sink      Sink
	SessionID string
	TaskID    string
}

// NewRecorder constructs a Recorder over sink.
func NewRecorder(sink Sink, sessionID, taskID string) *Recorder {
	return &Recorder{Sink: sink, SessionID: sessionID, TaskID: taskID}
}

// RecordOutcome implements toolexec.Recorder.
func (r *Recorder) RecordOutcome(call toolexec.Call, tool toolexec.Tool, outcome toolexec.Outcome) {
	data := map[string]any{
		"tool":    call.Name,
		"success": outcome.Error == nil,
	}
	if outcome.Error != nil {
		data["error"] = outcome.Error.Error()
	}
	r.Sink.Emit(Event{
		Type:      EventToolEnd,
		Data:      data,
		SessionID: r.SessionID,
		TaskID:    r.TaskID,
	})
}
