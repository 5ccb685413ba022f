// Package tracesink implements the trace/metrics sink that the execution
// loop, tool dispatch and subagent spawner report into: structured trace
// events (spec.md §6), an OpenTelemetry span adapter, and OpenTelemetry
// metric instruments.
package tracesink

import "time"

// EventType enumerates the trace event kinds spec.md §6 names.
type EventType string

const (
	EventIterationStart   EventType = "iteration.start"
	EventIterationEnd     EventType = "iteration.end"
	EventLLMRequest       EventType = "llm.request"
	EventLLMResponse      EventType = "llm.response"
	EventLLMThinking      EventType = "llm.thinking"
	EventToolStart        EventType = "tool.start"
	EventToolEnd          EventType = "tool.end"
	EventDecision         EventType = "decision"
	EventSubagentLink     EventType = "subagent.link"
	EventSwarmStart       EventType = "swarm.start"
	EventSwarmEnd         EventType = "swarm.end"
	EventAutocompactStart EventType = "autocompaction.start"
	EventAutocompactEnd   EventType = "autocompaction.end"
)

// Event is one record in the trace stream.
type Event struct {
	Type        EventType
	Data        map[string]any
	SessionID   string
	TaskID      string
	Iteration   int
	ParentAgent string
	SubagentID  string
	Timestamp   time.Time
}
