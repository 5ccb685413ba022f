package tracesink

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerConfig controls whether and where spans are exported.
type TracerConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporter_type"`
	EndpointURL  string  `yaml:"endpoint_url"`
	SamplingRate float64 `yaml:"sampling_rate"`
	ServiceName  string  `yaml:"service_name"`
}

// InitGlobalTracer installs a TracerProvider for cfg, falling back to a
// no-op provider when tracing is disabled or the exporter type is "none"
// so callers never need to branch on whether spans are actually exported.
func InitGlobalTracer(ctx context.Context, cfg TracerConfig) (trace.TracerProvider, error) {
	if !cfg.Enabled || cfg.ExporterType == "none" {
		return noop.NewTracerProvider(), nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.EndpointURL),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}

// GetTracer returns the named tracer from the global provider.
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// SpanSink turns each emitted Event into a zero-duration OTel span,
// giving a trace backend something to index even though the economics
// loop reports outcomes after the fact rather than wrapping a live span.
type SpanSink struct {
	tracer trace.Tracer
}

// NewSpanSink wraps the named tracer as a Sink.
func NewSpanSink(tracer trace.Tracer) *SpanSink {
	return &SpanSink{tracer: tracer}
}

// Emit starts and immediately ends a span carrying ev's fields as
// attributes, since Event is a finished fact rather than a span to
// straddle start/end calls.
func (s *SpanSink) Emit(ev Event) {
	_, span := s.tracer.Start(context.Background(), string(ev.Type))
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("session_id", ev.SessionID),
		attribute.String("task_id", ev.TaskID),
		attribute.Int("iteration", ev.Iteration),
	}
	if ev.ParentAgent != "" {
		attrs = append(attrs, attribute.String("parent_agent", ev.ParentAgent))
	}
	if ev.SubagentID != "" {
		attrs = append(attrs, attribute.String("subagent_id", ev.SubagentID))
	}
	for k, v := range ev.Data {
		attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", v)))
	}
	span.SetAttributes(attrs...)
}
