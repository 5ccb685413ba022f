package contextwin

// DefaultEmergencyKeepRecent bounds how many of the most recent messages
// survive an emergency compaction untouched.
const DefaultEmergencyKeepRecent = 10

// DefaultEmergencyPreviewChars bounds tool-output bodies kept during an
// emergency compaction.
const DefaultEmergencyPreviewChars = 200

// emergencyMarkerKey tags the synthetic marker message inserted by
// EmergencyCompact.
const emergencyMarkerKey = "contextwin.emergencyCompacted"

// EmergencyCompact implements the single-shot hard-budget recovery in
// spec.md §4.1 step 3: drop tool-output bodies to short previews and
// truncate all but the most recent N messages, keeping the system block
// and a "[context reduced]" marker. It does not call an LLM — this runs
// when the budget is already exhausted and a summarization call is not
// affordable.
//
// The caller is responsible for the "continue only if tokens fell below
// 80% of prior" check; EmergencyCompact just performs the reduction.
func EmergencyCompact(messages []Message) []Message {
	var system []Message
	var rest []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m)
		} else {
			rest = append(rest, m)
		}
	}

	keepFrom := len(rest) - DefaultEmergencyKeepRecent
	if keepFrom < 0 {
		keepFrom = 0
	}
	dropped := rest[:keepFrom]
	kept := rest[keepFrom:]

	out := make([]Message, 0, len(system)+1+len(kept))
	out = append(out, system...)
	if len(dropped) > 0 {
		marker := NewText(RoleUser, "[context reduced]")
		marker.Metadata = map[string]any{emergencyMarkerKey: true}
		out = append(out, marker)
	}
	for _, m := range kept {
		out = append(out, previewToolBodies(m)...)
	}
	return out
}

func previewToolBodies(m Message) []Message {
	if m.Role != RoleTool || m.PreserveFromCompaction() {
		return []Message{m}
	}
	text := m.Text()
	if len(text) <= DefaultEmergencyPreviewChars {
		return []Message{m}
	}
	preview := text[:DefaultEmergencyPreviewChars]
	m.Blocks = []ContentBlock{{Text: preview + "… (truncated)"}}
	return []Message{m}
}
