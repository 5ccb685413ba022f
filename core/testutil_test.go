package core

import (
	"context"

	"github.com/fenwick-labs/agentcore/toolexec"
)

// fakeTool is a hand-written CallableTool double for driving the execution
// loop in tests, matching the teacher's hand-written-fake convention.
type fakeTool struct {
	name      string
	write     bool
	callCount int
	callFunc  func(args map[string]any) (any, error)
}

func (f *fakeTool) Name() string                    { return f.name }
func (f *fakeTool) Description() string             { return "fake tool for tests" }
func (f *fakeTool) ParametersSchema() map[string]any { return nil }
func (f *fakeTool) DangerLevel() toolexec.DangerLevel { return toolexec.DangerSafe }
func (f *fakeTool) ReadOnly() bool                   { return !f.write }
func (f *fakeTool) RequiresApproval() bool           { return false }
func (f *fakeTool) IsWrite() bool                    { return f.write }

func (f *fakeTool) Call(ctx context.Context, args map[string]any) (any, error) {
	f.callCount++
	if f.callFunc != nil {
		return f.callFunc(args)
	}
	return "ok", nil
}
