package contextwin

import (
	"context"
	"fmt"
	"strings"
)

// DefaultCompactionWarningFraction is the fraction of the model's context
// window at which reversible compaction triggers (spec.md §4.7).
const DefaultCompactionWarningFraction = 0.70

// DefaultCompactionKeepRecent is how many of the most recent messages
// compaction always leaves untouched, beyond the preserved ones.
const DefaultCompactionKeepRecent = 6

// compactionMarkerKey tags a message produced by compaction so a second pass
// recognises an already-compacted transcript and is a no-op (idempotency,
// spec.md §8).
const compactionMarkerKey = "contextwin.compacted"

// Summarizer produces an LLM summary of a message run. Grounded on the
// teacher's SummarizationService: a single call, no retries of its own —
// callers decide what to do with a failure.
type Summarizer interface {
	Summarize(ctx context.Context, messages []Message) (string, error)
}

// Compact replaces the older portion of messages with an LLM-produced
// summary plus a reconstruction prompt listing preserved references, once
// tokens crosses warningFraction*maxTokens (0 selects the package default).
// System messages and the most recent DefaultCompactionKeepRecent messages
// are never touched; messages flagged PreserveFromCompaction are kept
// verbatim (bounded to the most recent 6, per the tool-output compaction
// rule) rather than folded into the summary.
//
// Calling Compact again on an already-compacted sequence is a no-op.
func Compact(ctx context.Context, summarizer Summarizer, messages []Message, tokens, maxTokens int, warningFraction float64) ([]Message, error) {
	if warningFraction <= 0 {
		warningFraction = DefaultCompactionWarningFraction
	}
	if maxTokens <= 0 || float64(tokens) < warningFraction*float64(maxTokens) {
		return messages, nil
	}
	if alreadyCompacted(messages) {
		return messages, nil
	}

	keepFrom := len(messages) - DefaultCompactionKeepRecent
	if keepFrom < 0 {
		keepFrom = 0
	}

	var toSummarize []Message
	var preserved []Message
	var head []Message // leading system messages, kept verbatim

	for i, m := range messages {
		switch {
		case m.Role == RoleSystem && i < keepFrom:
			head = append(head, m)
		case m.PreserveFromCompaction() && i < keepFrom:
			preserved = append(preserved, m)
		case i < keepFrom:
			toSummarize = append(toSummarize, m)
		}
	}
	recent := messages[keepFrom:]

	if len(toSummarize) == 0 {
		return messages, nil
	}

	summary, err := summarizer.Summarize(ctx, toSummarize)
	if err != nil {
		return nil, fmt.Errorf("compact conversation: %w", err)
	}

	if len(preserved) > 6 {
		preserved = preserved[len(preserved)-6:]
	}

	refs := preservedReferences(preserved)
	summaryText := fmt.Sprintf(
		"[context reduced: %d earlier messages summarised]\n%s\n\nPreserved references (ask again if you need the full content): %s",
		len(toSummarize), summary, refs,
	)
	summaryMsg := NewText(RoleUser, summaryText)
	if summaryMsg.Metadata == nil {
		summaryMsg.Metadata = map[string]any{}
	}
	summaryMsg.Metadata[compactionMarkerKey] = true

	out := make([]Message, 0, len(head)+1+len(preserved)+len(recent))
	out = append(out, head...)
	out = append(out, summaryMsg)
	out = append(out, preserved...)
	out = append(out, recent...)
	return out, nil
}

func alreadyCompacted(messages []Message) bool {
	for _, m := range messages {
		if m.Metadata != nil {
			if v, _ := m.Metadata[compactionMarkerKey].(bool); v {
				return true
			}
		}
	}
	return false
}

func preservedReferences(preserved []Message) string {
	if len(preserved) == 0 {
		return "(none)"
	}
	var refs []string
	for _, m := range preserved {
		if m.ToolCallID != "" {
			refs = append(refs, m.ToolCallID)
		}
	}
	if len(refs) == 0 {
		return "(none)"
	}
	return strings.Join(refs, ", ")
}
