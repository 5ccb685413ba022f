package tracesink

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records the counters and histograms this module's execution
// loop, LLM calls, and tool dispatch feed on every iteration. Trimmed to
// the agent/LLM/tool domain: HTTP, gRPC, and session KPI instruments from
// the teacher's recorder belong to an outer service surface this module
// doesn't have.
type Metrics struct {
	iterationDuration metric.Float64Histogram
	iterationsTotal   metric.Int64Counter
	agentErrorsTotal  metric.Int64Counter
	agentTokensTotal  metric.Int64Counter

	toolDuration    metric.Float64Histogram
	toolCallsTotal  metric.Int64Counter
	toolErrorsTotal metric.Int64Counter

	llmDuration     metric.Float64Histogram
	llmInputTokens  metric.Int64Counter
	llmOutputTokens metric.Int64Counter
	llmErrorsTotal  metric.Int64Counter

	subagentSpawnsTotal metric.Int64Counter
	compactionsTotal    metric.Int64Counter
}

// NewMetrics builds every instrument from meter, returning the first
// registration error encountered.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.iterationDuration, err = meter.Float64Histogram("agentcore_iteration_duration_seconds"); err != nil {
		return nil, err
	}
	if m.iterationsTotal, err = meter.Int64Counter("agentcore_iterations_total"); err != nil {
		return nil, err
	}
	if m.agentErrorsTotal, err = meter.Int64Counter("agentcore_agent_errors_total"); err != nil {
		return nil, err
	}
	if m.agentTokensTotal, err = meter.Int64Counter("agentcore_agent_tokens_total"); err != nil {
		return nil, err
	}
	if m.toolDuration, err = meter.Float64Histogram("agentcore_tool_duration_seconds"); err != nil {
		return nil, err
	}
	if m.toolCallsTotal, err = meter.Int64Counter("agentcore_tool_calls_total"); err != nil {
		return nil, err
	}
	if m.toolErrorsTotal, err = meter.Int64Counter("agentcore_tool_errors_total"); err != nil {
		return nil, err
	}
	if m.llmDuration, err = meter.Float64Histogram("agentcore_llm_duration_seconds"); err != nil {
		return nil, err
	}
	if m.llmInputTokens, err = meter.Int64Counter("agentcore_llm_input_tokens_total"); err != nil {
		return nil, err
	}
	if m.llmOutputTokens, err = meter.Int64Counter("agentcore_llm_output_tokens_total"); err != nil {
		return nil, err
	}
	if m.llmErrorsTotal, err = meter.Int64Counter("agentcore_llm_errors_total"); err != nil {
		return nil, err
	}
	if m.subagentSpawnsTotal, err = meter.Int64Counter("agentcore_subagent_spawns_total"); err != nil {
		return nil, err
	}
	if m.compactionsTotal, err = meter.Int64Counter("agentcore_compactions_total"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordIteration records one loop iteration's wall time and token cost.
func (m *Metrics) RecordIteration(ctx context.Context, duration time.Duration, tokens int, err error) {
	if m == nil {
		return
	}
	m.iterationDuration.Record(ctx, duration.Seconds())
	m.iterationsTotal.Add(ctx, 1)
	if tokens > 0 {
		m.agentTokensTotal.Add(ctx, int64(tokens))
	}
	if err != nil {
		m.agentErrorsTotal.Add(ctx, 1)
	}
}

// RecordTool records one tool dispatch.
func (m *Metrics) RecordTool(ctx context.Context, tool string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("tool", tool))
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
	m.toolCallsTotal.Add(ctx, 1, attrs)
	if err != nil {
		m.toolErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordLLMCall records one provider round trip.
func (m *Metrics) RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.llmDuration.Record(ctx, duration.Seconds(), attrs)
	m.llmInputTokens.Add(ctx, int64(inputTokens), attrs)
	m.llmOutputTokens.Add(ctx, int64(outputTokens), attrs)
	if err != nil {
		m.llmErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordSubagentSpawn records one spawn_agent call, successful or not.
func (m *Metrics) RecordSubagentSpawn(ctx context.Context, role string, success bool) {
	if m == nil {
		return
	}
	m.subagentSpawnsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", role),
		attribute.Bool("success", success),
	))
}

// RecordCompaction records one compaction pass, tagged by whether it was
// the reversible iteration-end kind or an emergency mid-budget one.
func (m *Metrics) RecordCompaction(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.compactionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// MetricsSink adapts Metrics to the Sink interface so it can sit in a
// MultiSink alongside a MemorySink or SpanSink, deriving counters from
// the same Event stream instead of requiring callers to call both APIs.
type MetricsSink struct {
	metrics *Metrics
	model   string
}

// NewMetricsSink wraps metrics as a Sink; model labels llm.* events.
func NewMetricsSink(metrics *Metrics, model string) *MetricsSink {
	return &MetricsSink{metrics: metrics, model: model}
}

// Emit derives a metrics update from ev's type and data.
func (s *MetricsSink) Emit(ev Event) {
	ctx := context.Background()
	switch ev.Type {
	case EventIterationEnd:
		dur, _ := ev.Data["duration_ms"].(int64)
		tokens, _ := ev.Data["tokens"].(int)
		errVal, _ := ev.Data["error"].(string)
		var err error
		if errVal != "" {
			err = errString(errVal)
		}
		s.metrics.RecordIteration(ctx, time.Duration(dur)*time.Millisecond, tokens, err)
	case EventToolEnd:
		tool, _ := ev.Data["tool"].(string)
		success, _ := ev.Data["success"].(bool)
		var err error
		if !success {
			err = errString("tool failed")
		}
		s.metrics.RecordTool(ctx, tool, 0, err)
	case EventLLMResponse:
		in, _ := ev.Data["input_tokens"].(int)
		out, _ := ev.Data["output_tokens"].(int)
		s.metrics.RecordLLMCall(ctx, s.model, 0, in, out, nil)
	case EventSubagentLink:
		role, _ := ev.Data["role"].(string)
		success, _ := ev.Data["success"].(bool)
		s.metrics.RecordSubagentSpawn(ctx, role, success)
	case EventAutocompactEnd:
		kind, _ := ev.Data["kind"].(string)
		s.metrics.RecordCompaction(ctx, kind)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
