package core

import (
	"context"
	"fmt"

	"github.com/fenwick-labs/agentcore/contextwin"
	"github.com/fenwick-labs/agentcore/llmprovider"
)

// resilienceOutcome is the final provider response after resilience
// wrapping has run its course, plus how many recovery attempts it took.
type resilienceOutcome struct {
	resp    llmprovider.Response
	retries int
}

// chatWithResilience wraps a single logical LLM turn with the two
// recovery ladders spec.md §4.3 requires: an empty-response retry (up to
// MaxEmptyRetries additional calls with an unchanged request) and a
// max_tokens continuation (up to MaxContinuations additional calls asking
// the provider to continue, concatenating each continuation's content
// onto the accumulated response).
func (a *Agent) chatWithResilience(ctx context.Context, messages []contextwin.Message, opts llmprovider.Options) (resilienceOutcome, error) {
	out := resilienceOutcome{}

	resp, err := a.retryEmpty(ctx, messages, opts, &out)
	if err != nil {
		return out, err
	}
	out.resp = resp

	for n := 0; out.resp.StopReason == llmprovider.StopMaxTokens && n < a.cfg.MaxContinuations; n++ {
		continued, err := a.continueGeneration(ctx, messages, opts, out.resp)
		if err != nil {
			return out, err
		}
		out.retries++
		out.resp.Content += continued.Content
		out.resp.ToolCalls = append(out.resp.ToolCalls, continued.ToolCalls...)
		out.resp.StopReason = continued.StopReason
		out.resp.Usage.InputTokens += continued.Usage.InputTokens
		out.resp.Usage.OutputTokens += continued.Usage.OutputTokens
		out.resp.Usage.Cost += continued.Usage.Cost
		a.engine.RecordLLMUsage(continued.Usage.InputTokens, continued.Usage.OutputTokens, continued.Usage.Cost)
	}

	return out, nil
}

// retryEmpty calls the provider, retrying up to MaxEmptyRetries times if
// it returns neither content nor tool calls — a response an idle model
// sometimes produces that the loop must not accept as a final answer.
func (a *Agent) retryEmpty(ctx context.Context, messages []contextwin.Message, opts llmprovider.Options, out *resilienceOutcome) (llmprovider.Response, error) {
	var last llmprovider.Response
	for attempt := 0; ; attempt++ {
		resp, err := a.cfg.Provider.Chat(ctx, messages, opts)
		if err != nil {
			return llmprovider.Response{}, &llmprovider.ProviderError{Cause: err}
		}
		a.engine.RecordLLMUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.Cost)

		if resp.Content != "" || len(resp.ToolCalls) > 0 {
			return resp, nil
		}
		last = resp
		if attempt >= a.cfg.MaxEmptyRetries {
			return last, nil
		}
		out.retries++
	}
}

// continueGeneration asks the provider to pick up where a max_tokens cutoff
// left off, appending the prior partial content as an assistant turn so
// the model has continuity.
func (a *Agent) continueGeneration(ctx context.Context, messages []contextwin.Message, opts llmprovider.Options, prior llmprovider.Response) (llmprovider.Response, error) {
	continued := append(append([]contextwin.Message{}, messages...),
		contextwin.NewText(contextwin.RoleAssistant, prior.Content),
		contextwin.NewText(contextwin.RoleUser, "Continue exactly where you left off."),
	)
	resp, err := a.cfg.Provider.Chat(ctx, continued, opts)
	if err != nil {
		return llmprovider.Response{}, fmt.Errorf("continue generation: %w", &llmprovider.ProviderError{Cause: err})
	}
	return resp, nil
}
