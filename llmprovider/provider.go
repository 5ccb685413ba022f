// Package llmprovider defines the LLM provider boundary: a single chat
// operation, its request/response/usage shapes, and a hand-written fake
// for tests. Wire encoding for any specific vendor is out of scope
// (spec.md §1 Non-goals) — this package only defines the contract core
// calls through.
package llmprovider

import (
	"context"

	"github.com/fenwick-labs/agentcore/contextwin"
)

// StopReason is why the provider stopped generating.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopToolUse      StopReason = "tool_use"
	StopMaxTokens    StopReason = "max_tokens"
	StopSequence     StopReason = "stop_sequence"
)

// Usage is the token/cost accounting a provider reports for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	CacheRead    int
	CacheWrite   int
	Cost         float64
}

// ToolSchema is one tool's definition as presented to the provider.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Options configures a single chat call.
type Options struct {
	Model       string
	Tools       []ToolSchema
	MaxTokens   int
	Temperature float64
}

// ThinkingBlock carries a provider's extended-reasoning output, when
// available (grounded on the teacher's `ThinkingBlock` in `pkg/llms`).
type ThinkingBlock struct {
	Text      string
	Signature string
}

// Response is what a chat call returns (spec.md §6).
type Response struct {
	Content    string
	ToolCalls  []contextwin.ToolCall
	StopReason StopReason
	Usage      Usage
	Thinking   *ThinkingBlock
}

// ProviderError wraps a provider-side failure (spec.md §7); resilience
// wrapping in core decides whether it is retryable.
type ProviderError struct {
	Cause error
}

func (e *ProviderError) Error() string { return "llm provider error: " + e.Cause.Error() }
func (e *ProviderError) Unwrap() error { return e.Cause }

// Provider is the single external LLM operation spec.md §6 requires.
type Provider interface {
	Chat(ctx context.Context, messages []contextwin.Message, opts Options) (Response, error)
}
