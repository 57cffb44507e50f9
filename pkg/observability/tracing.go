// Package observability provides OpenTelemetry tracing for Phaeton runs.
//
// Spans are nested run > pipeline > chunk. Until Init installs a provider
// the global no-op provider is used, so instrumented code never needs to
// check whether tracing is enabled.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ajitpratap0/phaeton"

// Tracer returns the tracer of the current global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Meter returns the meter of the current global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Span wraps a trace span with attribute helpers.
type Span struct {
	span trace.Span
}

// StartSpan starts a child span of the span in ctx.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &Span{span: span}
}

// SetAttribute adds an attribute to the span
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.span.SetAttributes(attr)
}

// End ends the span, marking it failed when err is non-nil.
func (s *Span) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

// StartRun starts the span of one Exec call.
func StartRun(ctx context.Context, runID string, pipelines int) (context.Context, *Span) {
	return StartSpan(ctx, "phaeton.exec",
		attribute.String("phaeton.run_id", runID),
		attribute.Int("phaeton.pipelines", pipelines),
	)
}

// StartPipeline starts the span of one pipeline execution.
func StartPipeline(ctx context.Context, tag string, stages int) (context.Context, *Span) {
	return StartSpan(ctx, "phaeton.pipeline",
		attribute.String("phaeton.pipeline", tag),
		attribute.Int("phaeton.stages", stages),
	)
}

// StartChunk starts the span of one chunk.
func StartChunk(ctx context.Context, seq int64, rows int) (context.Context, *Span) {
	return StartSpan(ctx, "phaeton.chunk",
		attribute.Int64("phaeton.chunk.seq", seq),
		attribute.Int("phaeton.chunk.rows", rows),
	)
}

// ChunkRows records the size of every chunk read.
type ChunkRows struct {
	hist metric.Int64Histogram
}

// NewChunkRows creates the phaeton.chunk.rows histogram on the global meter.
func NewChunkRows() *ChunkRows {
	hist, err := Meter().Int64Histogram("phaeton.chunk.rows",
		metric.WithDescription("Rows per chunk read from a source"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		otel.Handle(err)
		return &ChunkRows{}
	}
	return &ChunkRows{hist: hist}
}

// Record observes one chunk.
func (c *ChunkRows) Record(ctx context.Context, tag string, rows int) {
	if c.hist == nil {
		return
	}
	c.hist.Record(ctx, int64(rows), metric.WithAttributes(attribute.String("pipeline", tag)))
}
