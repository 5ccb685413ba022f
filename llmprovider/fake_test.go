package llmprovider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenwick-labs/agentcore/contextwin"
)

func TestScriptedProvider_ReplaysInOrderThenRepeatsLast(t *testing.T) {
	p := &ScriptedProvider{Responses: []Response{
		{Content: "first", StopReason: StopEndTurn},
		{Content: "second", StopReason: StopToolUse},
	}}

	r1, err := p.Chat(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, "first", r1.Content)

	r2, err := p.Chat(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, "second", r2.Content)

	r3, err := p.Chat(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, "second", r3.Content, "exhausted script should repeat the last response")

	assert.Equal(t, 3, p.CallCount())
}

func TestScriptedProvider_RecordsCallMessages(t *testing.T) {
	p := &ScriptedProvider{}
	messages := []contextwin.Message{contextwin.NewText(contextwin.RoleUser, "hi")}

	_, err := p.Chat(context.Background(), messages, Options{})
	require.NoError(t, err)

	require.Len(t, p.Calls, 1)
	assert.Equal(t, "hi", p.Calls[0][0].Text())
}
