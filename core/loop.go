package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fenwick-labs/agentcore/contextwin"
	"github.com/fenwick-labs/agentcore/economics"
	"github.com/fenwick-labs/agentcore/llmprovider"
	"github.com/fenwick-labs/agentcore/substrate"
	"github.com/fenwick-labs/agentcore/toolexec"
	"github.com/fenwick-labs/agentcore/tracesink"
)

// noopSummarizer backs reversible compaction when the caller configured no
// summarizer; it asks the agent's own provider, in one plain Chat call, to
// summarise the messages being compacted.
type noopSummarizer struct{ provider llmprovider.Provider }

func (s noopSummarizer) Summarize(ctx context.Context, messages []contextwin.Message) (string, error) {
	resp, err := s.provider.Chat(ctx, append(messages, contextwin.NewText(contextwin.RoleUser,
		"Summarize the conversation above in a few sentences, preserving concrete facts, file paths, and decisions.")),
		llmprovider.Options{})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Run drives the execution loop to completion: LLM call, tool dispatch,
// result ingestion, repeated until a final answer, a hard resource limit,
// or cancellation ends the run (spec.md §4.1).
func (a *Agent) Run(ctx context.Context) (*Result, error) {
	var token *substrate.Token
	if a.timeout != nil {
		token = a.timeout.Token
	}

	var pendingNudge string
	recovery := Recovery{}

	for {
		// 1. cancellation check
		if token != nil {
			if err := token.ThrowIfRequested(); err != nil {
				return a.finish(Completion{Reason: ReasonCancelled, Details: err.Error(), Recovery: recovery}), nil
			}
		}

		// 2. resource check: iteration ceiling
		iter := a.engine.Usage().NextIteration()
		if iter > a.cfg.MaxIterations {
			return a.finish(Completion{
				Reason:   ReasonError,
				Details:  fmt.Sprintf("hard limit reached: %s at 100%%", economics.KindIterations),
				Recovery: recovery,
			}), &BudgetExceededError{Kind: string(economics.KindIterations), Percent: 1.0}
		}
		a.emit(tracesink.EventIterationStart, iter, nil)

		// 3. budget check, with single-shot emergency-compaction recovery
		status := a.engine.CheckBudget()
		if !status.CanContinue {
			if (status.Reason == economics.KindTokens || status.Reason == economics.KindCost) && a.engine.TryEmergencyCompaction() {
				before := a.estimateTokens()
				a.messages = contextwin.EmergencyCompact(a.messages)
				after := a.estimateTokens()
				recovery.IntraRunRetries++
				recovery.ReasonChain = append(recovery.ReasonChain, "emergency_compaction")
				if after < before*8/10 {
					a.log.Info("emergency compaction recovered budget", "before", before, "after", after)
					continue
				}
			}
			return a.finish(Completion{
				Reason:   ReasonError,
				Details:  fmt.Sprintf("hard limit reached: %s at %.0f%%", status.Reason, status.Percent*100),
				Recovery: recovery,
			}), &BudgetExceededError{Kind: string(status.Reason), Percent: status.Percent}
		}

		// 4. wrap-up conversion
		if a.wrappingUp {
			a.cfg.SystemPrompt.DynamicMode = "Your time/budget is nearly exhausted. Provide your final answer now " +
				"without making further tool calls, unless one more call is strictly required to avoid leaving " +
				"the task half-finished."
		}

		// 5. external cancellation re-check (a wrap-up warning may have just
		// fired synchronously above; a hard cancellation could have landed
		// concurrently)
		if token != nil {
			if err := token.ThrowIfRequested(); err != nil {
				return a.finish(Completion{Reason: ReasonCancelled, Details: err.Error(), Recovery: recovery}), nil
			}
		}

		// 6. nudge injection (doom-loop / saturation / stuck, queued by the
		// previous iteration's tool dispatch or idle tick)
		turn := append([]contextwin.Message{}, a.messages...)
		if pendingNudge != "" {
			turn = append(turn, contextwin.NewText(contextwin.RoleUser, pendingNudge))
			pendingNudge = ""
		}

		// 7. recitation
		turn = contextwin.InjectRecitation(turn, a.estimateTokens(), 0, a.plan)

		// 8. failure context, inserted before the last user message
		if summary := a.failures.Summary(5); summary != "" {
			at := len(turn)
			for i := len(turn) - 1; i >= 0; i-- {
				if turn[i].Role == contextwin.RoleUser {
					at = i
					break
				}
			}
			tail := append([]contextwin.Message{contextwin.NewText(contextwin.RoleUser, summary)}, turn[at:]...)
			turn = append(turn[:at], tail...)
		}

		// 9. pre-flight soft-limit advisory
		if status.IsSoftLimit && status.InjectedPrompt != "" {
			turn = append(turn, contextwin.NewText(contextwin.RoleUser, status.InjectedPrompt))
		}

		// 10. LLM call with resilience wrapping
		opts := llmprovider.Options{Model: a.cfg.Model, Tools: toolSchemas(a.cfg.Tools)}
		a.emit(tracesink.EventLLMRequest, iter, map[string]any{"messages": len(turn)})
		llmStart := time.Now()
		outcome, err := a.chatWithResilience(ctx, turn, opts)
		if err != nil {
			var provErr *llmprovider.ProviderError
			if errors.As(err, &provErr) {
				return a.finish(Completion{Reason: ReasonError, Details: provErr.Error(), Recovery: recovery}), err
			}
			return a.finish(Completion{Reason: ReasonError, Details: err.Error(), Recovery: recovery}), err
		}
		recovery.IntraRunRetries += outcome.retries
		resp := outcome.resp
		a.emit(tracesink.EventLLMResponse, iter, map[string]any{
			"duration_ms":   time.Since(llmStart).Milliseconds(),
			"input_tokens":  resp.Usage.InputTokens,
			"output_tokens": resp.Usage.OutputTokens,
		})

		assistantMsg := contextwin.NewText(contextwin.RoleAssistant, resp.Content)
		assistantMsg.ToolCalls = resp.ToolCalls
		a.messages = append(a.messages, assistantMsg)

		// 11. post-LLM budget check
		if post := a.engine.CheckBudget(); !post.CanContinue {
			return a.finish(Completion{
				Reason:   ReasonError,
				Details:  fmt.Sprintf("hard limit reached after LLM call: %s", post.Reason),
				Recovery: recovery,
			}), &BudgetExceededError{Kind: string(post.Reason), Percent: post.Percent}
		}

		// 12. incomplete-action / final-response handling
		if len(resp.ToolCalls) == 0 {
			if a.detectFutureIntent(resp.Content) {
				recovery.ReasonChain = append(recovery.ReasonChain, "future_intent_rejected")
				pendingNudge = "Your previous answer described work you intend to do, but did not do it. " +
					"Either perform that work now with tool calls or state that it is already complete."
				continue
			}
			if a.hasOpenTasks() {
				return a.finish(Completion{Reason: ReasonOpenTasks, Details: "task manager reports open tasks remaining", Recovery: recovery}), nil
			}
			if failed, detail := a.swarmFailed(); failed {
				return a.finish(Completion{Reason: ReasonSwarmFailure, Details: detail, Recovery: recovery}), nil
			}
			return a.finish(Completion{Reason: ReasonCompleted, Recovery: recovery}), nil
		}

		// 13. tool execution
		calls := make([]toolexec.Call, len(resp.ToolCalls))
		for i, tc := range resp.ToolCalls {
			calls[i] = toolexec.Call{ID: tc.ID, Name: tc.Name, Args: tc.Args}
		}
		outcomes := a.executor.Dispatch(ctx, calls, a.prior)
		a.recordToolHistory(calls)

		// 14. tool-result ingestion, truncated/omitted per call
		byID := make(map[string]toolexec.Outcome, len(outcomes))
		for _, o := range outcomes {
			byID[o.CallID] = o
		}
		for _, tc := range resp.ToolCalls {
			o := byID[tc.ID]
			a.messages = append(a.messages, a.toolResultMessage(tc, o))
		}

		// idle tick only if the model produced tool calls with no usable
		// progress signal beyond what RecordLLMUsage already reset; the
		// engine's own bookkeeping decides whether this counts as idle.
		if nudge := a.engine.TickIdle(); nudge != "" {
			pendingNudge = nudge
		}

		// iteration-end compaction pass
		a.messages = contextwin.CompactToolOutputs(a.messages, 0)
		if compacted, cErr := contextwin.Compact(ctx, noopSummarizer{a.cfg.Provider}, a.messages, a.estimateTokens(), a.cfg.MaxContextTokens, 0); cErr == nil {
			a.messages = compacted
		}

		if a.timeout != nil {
			a.timeout.Extend(wrapupWindow(a.cfg.Limits.MaxDuration))
		}

		a.emit(tracesink.EventIterationEnd, iter, map[string]any{"tokens": a.estimateTokens()})
	}
}

func (a *Agent) toolResultMessage(tc contextwin.ToolCall, o toolexec.Outcome) contextwin.Message {
	text := fmt.Sprintf("%v", o.Result)
	if o.Error != nil {
		text = "error: " + o.Error.Error()
	}
	if len(text) > a.cfg.MaxToolOutputChars {
		text = text[:a.cfg.MaxToolOutputChars] + fmt.Sprintf("… (truncated, %d chars total)", len(text))
	}
	return contextwin.NewToolResult(tc.ID, text, false)
}

// estimateTokens ties the loop to the shared tokenizer rather than a
// hand-rolled heuristic (grounded on contextwin's tiktoken-go wrapper).
func (a *Agent) estimateTokens() int {
	if a.tokens == nil {
		return 0
	}
	return a.tokens.CountMessages(a.messages)
}

func (a *Agent) finish(c Completion) *Result {
	if a.cfg.Blackboard != nil {
		a.cfg.Blackboard.ReleaseAll(a.cfg.AgentID)
	}

	tokens, cost, iterations, duration := a.engine.Usage().Snapshot()
	success := c.Reason == ReasonCompleted
	var response string
	for i := len(a.messages) - 1; i >= 0; i-- {
		if a.messages[i].Role == contextwin.RoleAssistant {
			response = a.messages[i].Text()
			break
		}
	}
	return &Result{
		Success:    success,
		Response:   response,
		Messages:   a.messages,
		Completion: c,
		Metrics: Metrics{
			Tokens:     tokens,
			Cost:       cost,
			Duration:   duration,
			Iterations: iterations,
			RetryCount: c.Recovery.IntraRunRetries,
		},
	}
}

func toolSchemas(table *toolexec.Table) []llmprovider.ToolSchema {
	if table == nil {
		return nil
	}
	all := table.All()
	out := make([]llmprovider.ToolSchema, len(all))
	for i, t := range all {
		out[i] = llmprovider.ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.ParametersSchema(),
		}
	}
	return out
}
