package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromString_DecodesAgentPrimaryFields(t *testing.T) {
	yamlDoc := `
name: test-doc
agents:
  investigator:
    name: investigator
    provider: anthropic
    model: claude
    max_iterations: 30
    tools: [list_files, read_file]
    budget:
      max_tokens: 500000
      max_cost: 5.0
    subagent:
      allocation_fraction: 0.4
`
	cfg, err := LoadConfigFromString(yamlDoc)
	require.NoError(t, err)

	agent, ok := cfg.GetAgent("investigator")
	require.True(t, ok)
	assert.Equal(t, "anthropic", agent.Provider)
	assert.Equal(t, 30, agent.MaxIterations)
	assert.Equal(t, []string{"list_files", "read_file"}, agent.Tools)
	assert.Equal(t, 500000, agent.Budget.MaxTokens)
	assert.Equal(t, 0.4, agent.Subagent.AllocationFraction)
}

func TestLoadConfigFromString_ZeroConfigCreatesDefaultAgent(t *testing.T) {
	cfg, err := LoadConfigFromString(`name: empty-doc`)
	require.NoError(t, err)
	require.Len(t, cfg.Agents, 1)

	agent, ok := cfg.GetAgent("default")
	require.True(t, ok)
	assert.Equal(t, 50, agent.MaxIterations)
}

func TestLoadConfigFromString_FeatureTogglesNormalizeBoolAndMap(t *testing.T) {
	yamlDoc := `
agents:
  worker:
    name: worker
    provider: openai
    sandbox: true
    memory:
      backend: sqlite
    swarm: false
`
	cfg, err := LoadConfigFromString(yamlDoc)
	require.NoError(t, err)

	agent, ok := cfg.GetAgent("worker")
	require.True(t, ok)

	sandbox := agent.Feature("sandbox")
	assert.True(t, sandbox.Enabled)

	memory := agent.Feature("memory")
	assert.True(t, memory.Enabled)
	assert.Equal(t, "sqlite", memory.Options["backend"])

	swarm := agent.Feature("swarm")
	assert.False(t, swarm.Enabled)

	unset := agent.Feature("lsp")
	assert.False(t, unset.Enabled)
}

func TestLoadConfigFromString_MissingProviderFailsValidation(t *testing.T) {
	yamlDoc := `
agents:
  bad:
    name: bad
`
	_, err := LoadConfigFromString(yamlDoc)
	assert.Error(t, err)
}
