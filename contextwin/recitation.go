package contextwin

import (
	"fmt"
	"strings"
)

// DefaultRecitationTokenThreshold is the context size past which a
// recitation block is injected before the newest user message.
const DefaultRecitationTokenThreshold = 6000

// PlanStatus is the compact plan-progress summary recitation restates.
type PlanStatus struct {
	Goal         string
	Steps        []string
	CurrentStep  int // index into Steps, -1 if no plan yet
	ActiveFiles  []string
	RecentFailures []string // most recent first; recitation keeps at most 2
}

// Recite builds the compact restatement described in spec.md §4.7: goal,
// plan with a current-step marker, active files, and up to two recent
// failures. Returns "" if there is nothing worth reciting.
func Recite(status PlanStatus) string {
	var b strings.Builder
	b.WriteString("[Recitation — context is long, restating task state]\n")

	if status.Goal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", status.Goal)
	}

	if len(status.Steps) > 0 {
		b.WriteString("Plan:\n")
		for i, step := range status.Steps {
			marker := "  "
			if i == status.CurrentStep {
				marker = "> "
			}
			fmt.Fprintf(&b, "%s%d. %s\n", marker, i+1, step)
		}
	}

	if len(status.ActiveFiles) > 0 {
		fmt.Fprintf(&b, "Active files: %s\n", strings.Join(status.ActiveFiles, ", "))
	}

	if n := len(status.RecentFailures); n > 0 {
		if n > 2 {
			n = 2
		}
		b.WriteString("Recent failures:\n")
		for _, f := range status.RecentFailures[:n] {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}

	out := strings.TrimRight(b.String(), "\n")
	if out == "[Recitation — context is long, restating task state]" {
		return ""
	}
	return out
}

// InjectRecitation returns a new message sequence with a recitation
// message inserted immediately before the last user message, if tokens
// exceeds threshold (0 selects DefaultRecitationTokenThreshold) and the
// recitation text is non-empty. The loop replaces its message slice with
// the returned sequence unconditionally, per spec.md §9's resolved rule —
// when a recitation is inserted the result is a fresh slice; otherwise the
// input slice itself is returned. The input is never mutated in place.
func InjectRecitation(messages []Message, tokens, threshold int, status PlanStatus) []Message {
	if threshold <= 0 {
		threshold = DefaultRecitationTokenThreshold
	}
	if tokens < threshold {
		return messages
	}

	text := Recite(status)
	if text == "" {
		return messages
	}

	lastUser := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			lastUser = i
			break
		}
	}
	if lastUser == -1 {
		return messages
	}

	out := make([]Message, 0, len(messages)+1)
	out = append(out, messages[:lastUser]...)
	out = append(out, NewText(RoleUser, text))
	out = append(out, messages[lastUser:]...)
	return out
}
