package contextwin

import "fmt"

// DefaultToolPreviewChars is the default preview length; any tool body
// longer than 2x this is eligible for compaction (spec.md §4.7).
const DefaultToolPreviewChars = 200

// DefaultPreservedCap bounds how many preserveFromCompaction tool messages
// survive a compaction pass; older ones past the cap are compacted too.
const DefaultPreservedCap = 6

// CompactToolOutputs replaces bodies of tool messages longer than
// 2*previewChars with a "[preview…] (N chars, compacted)" marker, run after
// each assistant turn. Messages flagged PreserveFromCompaction are exempt,
// up to the most recent DefaultPreservedCap of them — older preserved
// messages beyond that cap are compacted like any other.
func CompactToolOutputs(messages []Message, previewChars int) []Message {
	if previewChars <= 0 {
		previewChars = DefaultToolPreviewChars
	}

	preservedSeen := 0
	out := make([]Message, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role != RoleTool {
			out[i] = m
			continue
		}
		if m.PreserveFromCompaction() && preservedSeen < DefaultPreservedCap {
			preservedSeen++
			out[i] = m
			continue
		}

		text := m.Text()
		if len(text) <= 2*previewChars {
			out[i] = m
			continue
		}

		preview := text[:previewChars]
		compacted := m
		compacted.Blocks = []ContentBlock{
			{Text: fmt.Sprintf("[%s…] (%d chars, compacted)", preview, len(text))},
		}
		out[i] = compacted
	}
	return out
}
