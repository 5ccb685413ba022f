package contextwin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleSystemPrompt_OrdersBlocksWithDynamicLast(t *testing.T) {
	msg := AssembleSystemPrompt(PromptSections{
		StaticPrefix:  "prefix",
		Rules:         "rules",
		ToolSchemas:   "schemas",
		MemoryContext: "memory",
		DynamicMode:   "plan mode active",
	})

	require.Len(t, msg.Blocks, 5)
	assert.Equal(t, "prefix", msg.Blocks[0].Text)
	assert.Equal(t, "plan mode active", msg.Blocks[4].Text)
	assert.Equal(t, CacheNone, msg.Blocks[4].Hint)
	assert.Equal(t, CachePersist, msg.Blocks[0].Hint)
}

func TestAssembleSystemPrompt_SkipsEmptySections(t *testing.T) {
	msg := AssembleSystemPrompt(PromptSections{StaticPrefix: "prefix"})
	require.Len(t, msg.Blocks, 1)
}
