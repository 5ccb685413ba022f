package subagent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatParse_RoundTrips(t *testing.T) {
	r := Report{
		Findings:           []string{"the bug is in the retry loop", "tokens were double-counted"},
		ActionsTaken:       []string{"fixed the double count in engine.go"},
		Failures:           []string{"one flaky test could not be reproduced"},
		RemainingWork:      []string{"add a regression test"},
		SuggestedNextSteps: []string{"run the full suite once more"},
		ExitReason:         "completed",
	}

	got := Parse(Format(r))
	assert.Equal(t, r, got)
}

func TestParse_TolerantOfPartialReport(t *testing.T) {
	text := "Findings:\n  - partial result before cancellation\n"
	r := Parse(text)
	assert.Equal(t, []string{"partial result before cancellation"}, r.Findings)
	assert.Empty(t, r.ExitReason)
}

func TestParse_IgnoresUnrecognisedLines(t *testing.T) {
	text := "some preamble the model wrote\nFindings:\n  - a real finding\nrandom trailing note"
	r := Parse(text)
	assert.Equal(t, []string{"a real finding"}, r.Findings)
}
