package core

import (
	"github.com/fenwick-labs/agentcore/contextwin"
	"github.com/fenwick-labs/agentcore/economics"
	"github.com/fenwick-labs/agentcore/toolexec"
)

// engineRecorder bridges toolexec's narrow Recorder contract to the
// economics engine and the failure tracker, so toolexec never has to
// import either package (keeps the dependency graph acyclic).
type engineRecorder struct {
	engine   *economics.Engine
	failures *contextwin.FailureTracker
	forward  toolexec.Recorder // optional: a tracing sink, set by the caller
}

func newEngineRecorder(engine *economics.Engine, failures *contextwin.FailureTracker, forward toolexec.Recorder) *engineRecorder {
	return &engineRecorder{engine: engine, failures: failures, forward: forward}
}

// RecordOutcome implements toolexec.Recorder.
func (r *engineRecorder) RecordOutcome(call toolexec.Call, tool toolexec.Tool, outcome toolexec.Outcome) {
	path, _ := call.Args["path"].(string)

	r.engine.RecordToolCall(economics.ToolOutcome{
		ToolName: call.Name,
		Args:     call.Args,
		IsRead:   tool.ReadOnly(),
		IsWrite:  tool.IsWrite(),
		FilePath: path,
		Err:      outcome.Error,
	})

	if outcome.Error != nil && r.failures != nil {
		r.failures.Record(call.Name, call.Args, categorize(outcome.Error))
	}

	if r.forward != nil {
		r.forward.RecordOutcome(call, tool, outcome)
	}
}

func categorize(err error) string {
	switch err.(type) {
	case *toolexec.PolicyDeniedError:
		return "policy_denied"
	case *toolexec.ToolError:
		return "tool_error"
	default:
		return "error"
	}
}
