// Package diagnostic implements the post-append diagnostic branch: draw a
// random value, classify it against a fixed threshold, and log exactly one
// record at the severity the classification picks.
//
// The branch never affects the HTTP response. It exists to exercise
// conditional log emission and nested spans: each run opens a "diagnostic"
// span under the caller's span and a "diagnostic.classify" span under that.
package diagnostic

import (
	"context"
	"math/rand/v2"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/conneroisu/waha/internal/logging"
)

// Threshold splits the two outcomes: values strictly below it are Info.
const Threshold = 0.5

// Outcome is the state a single run ends in.
type Outcome int

const (
	OutcomeInfo Outcome = iota
	OutcomeError
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeInfo:
		return "info"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Classify maps a value in [0,1) to an outcome.
func Classify(value float64) Outcome {
	if value < Threshold {
		return OutcomeInfo
	}
	return OutcomeError
}

// Source yields uniformly distributed values in [0,1).
type Source func() float64

// Brancher draws from a Source and logs the classified outcome.
type Brancher struct {
	source Source
	logger logging.Logger
	tracer trace.Tracer
}

// NewBrancher creates a Brancher. A nil tracer records no spans and a nil
// source uses the process-wide math/rand/v2 generator.
func NewBrancher(logger logging.Logger, tracer trace.Tracer, source Source) *Brancher {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	if source == nil {
		source = rand.Float64
	}

	return &Brancher{
		source: source,
		logger: logger.WithComponent("diagnostic"),
		tracer: tracer,
	}
}

// Run performs one draw and emits exactly one info or error record for it.
// The returned outcome is informational; callers must not branch on it.
func (b *Brancher) Run(ctx context.Context) Outcome {
	ctx, span := b.tracer.Start(ctx, "diagnostic")
	defer span.End()

	b.logger.Debug(ctx, "drawing diagnostic value")

	value := b.source()
	span.SetAttributes(attribute.Float64("diagnostic.value", value))

	return b.classify(ctx, value)
}

func (b *Brancher) classify(ctx context.Context, value float64) Outcome {
	ctx, span := b.tracer.Start(ctx, "diagnostic.classify")
	defer span.End()

	outcome := Classify(value)
	span.SetAttributes(
		attribute.Float64("diagnostic.value", value),
		attribute.String("diagnostic.outcome", outcome.String()),
	)

	switch outcome {
	case OutcomeInfo:
		b.logger.Info(ctx, "diagnostic value below threshold", "value", value, "threshold", Threshold)
	default:
		b.logger.Error(ctx, nil, "diagnostic value at or above threshold", "value", value, "threshold", Threshold)
	}

	return outcome
}
