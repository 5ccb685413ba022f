package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnvVarsInString_SupportsAllThreeForms(t *testing.T) {
	os.Setenv("AGENTCORE_TEST_VAR", "hello")
	defer os.Unsetenv("AGENTCORE_TEST_VAR")

	assert.Equal(t, "hello", expandEnvVarsInString("$AGENTCORE_TEST_VAR"))
	assert.Equal(t, "hello", expandEnvVarsInString("${AGENTCORE_TEST_VAR}"))
	assert.Equal(t, "hello", expandEnvVarsInString("${AGENTCORE_TEST_VAR:-fallback}"))
}

func TestExpandEnvVarsInString_UsesDefaultWhenUnset(t *testing.T) {
	os.Unsetenv("AGENTCORE_TEST_UNSET")
	assert.Equal(t, "fallback", expandEnvVarsInString("${AGENTCORE_TEST_UNSET:-fallback}"))
}

func TestExpandEnvVarsInMap_ReparsesSubstitutedNumbers(t *testing.T) {
	os.Setenv("AGENTCORE_TEST_INT", "42")
	defer os.Unsetenv("AGENTCORE_TEST_INT")

	result := expandEnvVarsInMap(map[string]any{"max_iterations": "$AGENTCORE_TEST_INT"})
	m, ok := result.(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, 42, m["max_iterations"])
}

func TestParseValue_BoolAndNumeric(t *testing.T) {
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, false, parseValue("false"))
	assert.Equal(t, 7, parseValue("7"))
	assert.Equal(t, 2.5, parseValue("2.5"))
	assert.Equal(t, "plain", parseValue("plain"))
}
