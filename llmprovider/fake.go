package llmprovider

import (
	"context"

	"github.com/fenwick-labs/agentcore/contextwin"
)

// ScriptedProvider is a hand-written test double that replays a fixed
// sequence of responses, one per call, repeating the last response once
// the script is exhausted. Matches the teacher's hand-written-fake
// convention (SPEC_FULL §A) rather than a generated mock.
type ScriptedProvider struct {
	Responses []Response
	Calls     [][]contextwin.Message
	callCount int
}

// Chat implements Provider.
func (p *ScriptedProvider) Chat(ctx context.Context, messages []contextwin.Message, opts Options) (Response, error) {
	p.Calls = append(p.Calls, messages)
	p.callCount++

	if len(p.Responses) == 0 {
		return Response{StopReason: StopEndTurn}, nil
	}

	idx := p.callCount - 1
	if idx >= len(p.Responses) {
		idx = len(p.Responses) - 1
	}
	return p.Responses[idx], nil
}

// CallCount returns how many times Chat has been invoked.
func (p *ScriptedProvider) CallCount() int { return p.callCount }
