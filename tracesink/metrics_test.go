package tracesink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	meter := noop.NewMeterProvider().Meter("test")
	m, err := NewMetrics(meter)
	require.NoError(t, err)
	return m
}

func TestNewMetrics_BuildsAllInstrumentsWithoutError(t *testing.T) {
	newTestMetrics(t)
}

func TestMetricsSink_TranslatesEventsWithoutPanicking(t *testing.T) {
	sink := NewMetricsSink(newTestMetrics(t), "gpt-4")

	sink.Emit(Event{Type: EventIterationEnd, Data: map[string]any{"duration_ms": int64(120), "tokens": 42}})
	sink.Emit(Event{Type: EventToolEnd, Data: map[string]any{"tool": "read_file", "success": true}})
	sink.Emit(Event{Type: EventLLMResponse, Data: map[string]any{"input_tokens": 10, "output_tokens": 20}})
	sink.Emit(Event{Type: EventSubagentLink, Data: map[string]any{"role": "investigator", "success": true}})
	sink.Emit(Event{Type: EventAutocompactEnd, Data: map[string]any{"kind": "reversible"}})
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordIteration(ctx, time.Second, 10, nil)
	m.RecordTool(ctx, "x", time.Second, nil)
	m.RecordLLMCall(ctx, "gpt-4", time.Second, 1, 1, nil)
	m.RecordSubagentSpawn(ctx, "role", true)
	m.RecordCompaction(ctx, "kind")
}
