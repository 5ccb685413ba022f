package subagent

import (
	"strings"
)

// Report is the structured closure a subagent returns to its parent,
// whether it finished normally, timed out, or was cancelled (spec.md §4.2).
type Report struct {
	Findings           []string
	ActionsTaken       []string
	Failures           []string
	RemainingWork      []string
	SuggestedNextSteps []string
	ExitReason         string
}

const (
	sectionFindings     = "Findings"
	sectionActions      = "Actions taken"
	sectionFailures     = "Failures"
	sectionRemaining    = "Remaining work"
	sectionSuggestions  = "Suggested next steps"
	sectionExitReason   = "Exit reason"
)

// Format renders r as the plain-text block a subagent emits as its final
// answer, and a parent/task-manager re-parses with Parse.
func Format(r Report) string {
	var b strings.Builder
	writeList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		b.WriteString(title)
		b.WriteString(":\n")
		for _, item := range items {
			b.WriteString("  - ")
			b.WriteString(item)
			b.WriteString("\n")
		}
	}
	writeList(sectionFindings, r.Findings)
	writeList(sectionActions, r.ActionsTaken)
	writeList(sectionFailures, r.Failures)
	writeList(sectionRemaining, r.RemainingWork)
	writeList(sectionSuggestions, r.SuggestedNextSteps)
	if r.ExitReason != "" {
		b.WriteString(sectionExitReason)
		b.WriteString(": ")
		b.WriteString(r.ExitReason)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Parse recovers a Report from text previously produced by Format. It is
// tolerant of a missing trailing newline or absent sections; unrecognised
// lines are ignored rather than causing an error, since a parent must
// still be able to recover a partial report from a subagent that was
// cancelled mid-turn.
func Parse(text string) Report {
	var r Report
	var current *[]string

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if rest, ok := cutSection(trimmed, sectionExitReason+":"); ok {
			r.ExitReason = strings.TrimSpace(rest)
			current = nil
			continue
		}
		if matched, target := matchSectionHeader(trimmed); matched {
			current = target(&r)
			continue
		}

		if item, ok := cutListItem(trimmed); ok && current != nil {
			*current = append(*current, item)
		}
	}
	return r
}

func cutSection(line, prefix string) (string, bool) {
	if strings.HasPrefix(line, prefix) {
		return line[len(prefix):], true
	}
	return "", false
}

func matchSectionHeader(line string) (bool, func(*Report) *[]string) {
	switch {
	case strings.HasPrefix(line, sectionFindings+":"):
		return true, func(r *Report) *[]string { return &r.Findings }
	case strings.HasPrefix(line, sectionActions+":"):
		return true, func(r *Report) *[]string { return &r.ActionsTaken }
	case strings.HasPrefix(line, sectionFailures+":"):
		return true, func(r *Report) *[]string { return &r.Failures }
	case strings.HasPrefix(line, sectionRemaining+":"):
		return true, func(r *Report) *[]string { return &r.RemainingWork }
	case strings.HasPrefix(line, sectionSuggestions+":"):
		return true, func(r *Report) *[]string { return &r.SuggestedNextSteps }
	default:
		return false, nil
	}
}

func cutListItem(line string) (string, bool) {
	if strings.HasPrefix(line, "- ") {
		return strings.TrimSpace(line[2:]), true
	}
	return "", false
}
