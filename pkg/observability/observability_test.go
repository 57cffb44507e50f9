package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestSpansNest(t *testing.T) {
	rec := recorder(t)

	ctx, run := StartRun(context.Background(), "run-1", 2)
	pctx, p := StartPipeline(ctx, "clean", 4)
	_, c := StartChunk(pctx, 0, 100)
	c.End(nil)
	p.End(errors.New("sink closed"))
	run.End(nil)

	spans := rec.Ended()
	require.Len(t, spans, 3)
	chunk, pipe, exec := spans[0], spans[1], spans[2]
	assert.Equal(t, "phaeton.chunk", chunk.Name())
	assert.Equal(t, pipe.SpanContext().SpanID(), chunk.Parent().SpanID())
	assert.Equal(t, exec.SpanContext().SpanID(), pipe.Parent().SpanID())
	assert.Equal(t, codes.Error, pipe.Status().Code)
	assert.Equal(t, codes.Ok, exec.Status().Code)
}

func TestSetAttribute(t *testing.T) {
	rec := recorder(t)
	_, s := StartSpan(context.Background(), "x")
	s.SetAttribute("rows", 3)
	s.SetAttribute("tag", "clean")
	s.SetAttribute("other", []int{1})
	s.End(nil)

	attrs := rec.Ended()[0].Attributes()
	assert.Len(t, attrs, 3)
}

func TestInitExportsToWriter(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := Init(Config{ServiceName: "phaeton-test", SampleRate: 1, Output: &buf})
	require.NoError(t, err)

	_, s := StartSpan(context.Background(), "phaeton.test")
	s.End(nil)
	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "phaeton.test")
}

func TestChunkRowsWithoutSDK(t *testing.T) {
	c := NewChunkRows()
	c.Record(context.Background(), "clean", 10)
}
