package contextwin

// PromptSections are the ordered inputs to system-prompt assembly. Only
// DynamicMode is expected to change between turns of the same task, so it
// is placed last — everything before it should hit the provider's prompt
// cache on repeat calls (spec.md §4.7).
type PromptSections struct {
	StaticPrefix string // identity, operating rules - changes only on redeploy
	Rules        string // loaded rule set for this agent
	ToolSchemas  string // serialised tool table
	MemoryContext string // codebase/memory context for this task
	DynamicMode  string // plan/build mode banner, wrap-up notices - changes per turn
}

// AssembleSystemPrompt builds the system message as an ordered sequence of
// cache-hinted blocks. Everything but the final block is hinted for
// persistent caching; the dynamic block is never cached since it is
// expected to differ turn to turn.
func AssembleSystemPrompt(s PromptSections) Message {
	var blocks []ContentBlock
	add := func(text string) {
		if text == "" {
			return
		}
		blocks = append(blocks, ContentBlock{Text: text, Hint: CachePersist})
	}
	add(s.StaticPrefix)
	add(s.Rules)
	add(s.ToolSchemas)
	add(s.MemoryContext)

	if s.DynamicMode != "" {
		blocks = append(blocks, ContentBlock{Text: s.DynamicMode, Hint: CacheNone})
	}

	return Message{Role: RoleSystem, Blocks: blocks}
}
