package diagnostic

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/conneroisu/waha/internal/logging"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		value    float64
		expected Outcome
	}{
		{0, OutcomeInfo},
		{0.25, OutcomeInfo},
		{math.Nextafter(0.5, 0), OutcomeInfo},
		{0.5, OutcomeError},
		{0.75, OutcomeError},
		{math.Nextafter(1, 0), OutcomeError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Classify(tt.value), "value %v", tt.value)
	}
}

func TestRunLogsOnce(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		outcome Outcome
		level   logging.LogLevel
	}{
		{"below threshold logs info", 0.1, OutcomeInfo, logging.LevelInfo},
		{"threshold logs error", 0.5, OutcomeError, logging.LevelError},
		{"above threshold logs error", 0.9, OutcomeError, logging.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := logging.NewRecorder()
			b := NewBrancher(rec, nil, func() float64 { return tt.value })

			got := b.Run(context.Background())

			assert.Equal(t, tt.outcome, got)
			assert.Equal(t, 1, rec.Count(logging.LevelInfo)+rec.Count(logging.LevelError))
			assert.Equal(t, 1, rec.Count(tt.level))

			for _, e := range rec.Entries() {
				assert.Equal(t, "diagnostic", e.Component)
				if e.Level == tt.level {
					assert.Equal(t, tt.value, e.Fields["value"])
				}
			}
		})
	}
}

func TestRunRatio(t *testing.T) {
	const runs = 10000

	rec := logging.NewRecorder()
	rng := rand.New(rand.NewPCG(42, 1024))
	b := NewBrancher(rec, nil, rng.Float64)

	for i := 0; i < runs; i++ {
		b.Run(context.Background())
	}

	infos := rec.Count(logging.LevelInfo)
	errs := rec.Count(logging.LevelError)

	require.Equal(t, runs, infos+errs, "every run emits exactly one severity record")
	assert.Equal(t, runs, rec.Count(logging.LevelDebug))

	// Binomial(10000, 0.5) has sigma 50; allow 5 sigma.
	assert.InDelta(t, runs/2, infos, 250)
}

func TestRunDefaultSource(t *testing.T) {
	rec := logging.NewRecorder()
	b := NewBrancher(rec, nil, nil)

	for i := 0; i < 100; i++ {
		b.Run(context.Background())
	}

	assert.Equal(t, 100, rec.Count(logging.LevelInfo)+rec.Count(logging.LevelError))
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[string]interface{} {
	attrs := map[string]interface{}{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	return attrs
}

func TestRunOpensChildSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := tp.Tracer("test")
	ctx, parent := tracer.Start(context.Background(), "POST /api/todos")
	NewBrancher(logging.NewRecorder(), tracer, func() float64 { return 0.75 }).Run(ctx)
	parent.End()

	ended := sr.Ended()
	require.Len(t, ended, 3)

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range ended {
		byName[s.Name()] = s
	}
	request, draw, classify := byName["POST /api/todos"], byName["diagnostic"], byName["diagnostic.classify"]
	require.NotNil(t, request)
	require.NotNil(t, draw)
	require.NotNil(t, classify)

	assert.Equal(t, request.SpanContext().SpanID(), draw.Parent().SpanID())
	assert.Equal(t, draw.SpanContext().SpanID(), classify.Parent().SpanID())
	assert.Equal(t, request.SpanContext().TraceID(), classify.SpanContext().TraceID())

	assert.Empty(t, request.Events())
	assert.Equal(t, 0.75, spanAttrs(draw)["diagnostic.value"])
	assert.Equal(t, "error", spanAttrs(classify)["diagnostic.outcome"])
}
