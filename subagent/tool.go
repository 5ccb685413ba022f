package subagent

import (
	"context"
	"fmt"

	"github.com/fenwick-labs/agentcore/toolexec"
)

// Tool exposes a Spawner as a callable tool the parent's LLM can invoke
// to delegate a subtask, satisfying toolexec.CallableTool. Registered
// into the parent's tool table by whoever constructs the agent hierarchy
// (subagent does not register itself, to keep core ignorant of subagent).
type Tool struct {
	Spawner *Spawner
}

func (t *Tool) Name() string        { return "spawn_agent" }
func (t *Tool) Description() string { return "Delegate a subtask to a new agent and receive its closure report." }

func (t *Tool) ParametersSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"role":        map[string]any{"type": "string"},
			"task":        map[string]any{"type": "string"},
			"tools":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"constraints": map[string]any{"type": "string"},
			"budget":      map[string]any{"type": "integer"},
		},
		"required": []string{"role", "task"},
	}
}

func (t *Tool) DangerLevel() toolexec.DangerLevel { return toolexec.DangerModerate }
func (t *Tool) ReadOnly() bool                    { return false }
func (t *Tool) RequiresApproval() bool             { return false }
func (t *Tool) IsWrite() bool                      { return false }

// Call implements toolexec.CallableTool.
func (t *Tool) Call(ctx context.Context, args map[string]any) (any, error) {
	req := Request{
		Role:            stringArg(args, "role"),
		Task:            stringArg(args, "task"),
		Constraints:     stringArg(args, "constraints"),
		RequestedBudget: intArg(args, "budget", 20_000),
	}
	if raw, ok := args["tools"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				req.Tools = append(req.Tools, s)
			}
		}
	}

	out, err := t.Spawner.Spawn(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("spawn agent: %w", err)
	}
	if out.FinalText != "" {
		return out.FinalText, nil
	}
	return Format(out.Report), nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}
