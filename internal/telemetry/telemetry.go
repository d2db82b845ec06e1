// Package telemetry configures the OpenTelemetry tracer provider that
// receives one span per HTTP request.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/conneroisu/waha/internal/config"
	apperrors "github.com/conneroisu/waha/internal/errors"
	"github.com/conneroisu/waha/internal/version"
)

// InstrumentationName is the tracer name used for request spans.
const InstrumentationName = "github.com/conneroisu/waha"

// Provider owns the tracer provider and knows how to flush it.
type Provider struct {
	tracerProvider trace.TracerProvider
	shutdown       func(context.Context) error
}

// Setup builds a tracer provider from cfg and installs it, together with a
// W3C trace-context propagator, as the global provider. Spans are written
// synchronously to out (stdout when nil) by the stdout exporter.
func Setup(cfg config.TracingConfig, out io.Writer) (*Provider, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled || cfg.Exporter == "none" {
		p := &Provider{
			tracerProvider: noop.NewTracerProvider(),
			shutdown:       func(context.Context) error { return nil },
		}
		otel.SetTracerProvider(p.tracerProvider)
		return p, nil
	}

	if out == nil {
		out = os.Stdout
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
	if err != nil {
		return nil, apperrors.NewInternalError(apperrors.ErrCodeTelemetryInit, "create stdout trace exporter", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", version.Get().Version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{tracerProvider: tp, shutdown: tp.Shutdown}, nil
}

// NewProvider wraps an existing tracer provider, e.g. one backed by a
// tracetest.SpanRecorder in tests. It is not installed globally.
func NewProvider(tp trace.TracerProvider) *Provider {
	p := &Provider{tracerProvider: tp, shutdown: func(context.Context) error { return nil }}
	if sdk, ok := tp.(*sdktrace.TracerProvider); ok {
		p.shutdown = sdk.Shutdown
	}
	return p
}

// Tracer returns the tracer for request spans.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracerProvider.Tracer(InstrumentationName)
}

// TracerProvider returns the underlying provider.
func (p *Provider) TracerProvider() trace.TracerProvider {
	return p.tracerProvider
}

// Shutdown flushes and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown tracer provider: %w", err)
	}
	return nil
}
