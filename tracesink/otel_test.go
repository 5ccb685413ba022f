package tracesink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestInitGlobalTracer_DisabledReturnsNoopProvider(t *testing.T) {
	tp, err := InitGlobalTracer(context.Background(), TracerConfig{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, noop.NewTracerProvider(), tp)
}

func TestSpanSink_EmitDoesNotPanicOnNoopTracer(t *testing.T) {
	sink := NewSpanSink(noop.NewTracerProvider().Tracer("test"))
	sink.Emit(Event{
		Type:      EventToolEnd,
		SessionID: "sess-1",
		TaskID:    "task-1",
		Iteration: 3,
		Data:      map[string]any{"tool": "read_file"},
	})
}
