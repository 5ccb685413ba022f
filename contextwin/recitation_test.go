package contextwin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecite_EmptyWithoutGoalOrPlan(t *testing.T) {
	got := Recite(PlanStatus{})
	assert.Empty(t, got)
}

func TestRecite_IncludesGoalPlanAndFailures(t *testing.T) {
	got := Recite(PlanStatus{
		Goal:           "ship the feature",
		Steps:          []string{"read code", "write patch", "verify"},
		CurrentStep:    1,
		ActiveFiles:    []string{"a.go", "b.go"},
		RecentFailures: []string{"compile error", "test failure", "lint error"},
	})

	assert.Contains(t, got, "ship the feature")
	assert.Contains(t, got, "> 2. write patch")
	assert.Contains(t, got, "a.go, b.go")
	assert.Contains(t, got, "compile error")
	assert.Contains(t, got, "test failure")
	assert.NotContains(t, got, "lint error", "only the two most recent failures should be recited")
}

func TestInjectRecitation_BelowThresholdIsNoOp(t *testing.T) {
	messages := []Message{NewText(RoleUser, "hello")}
	out := InjectRecitation(messages, 10, 100, PlanStatus{Goal: "x"})
	assert.Equal(t, messages, out)
}

func TestInjectRecitation_InsertsBeforeLastUserMessage(t *testing.T) {
	messages := []Message{
		NewText(RoleSystem, "sys"),
		NewText(RoleUser, "first"),
		NewText(RoleAssistant, "reply"),
		NewText(RoleUser, "second"),
	}

	out := InjectRecitation(messages, 200, 100, PlanStatus{Goal: "ship it"})

	require.Len(t, out, 5)
	assert.Contains(t, out[3].Text(), "ship it")
	assert.Equal(t, "second", out[4].Text())
}
