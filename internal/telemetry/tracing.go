package telemetry

import (
	"context"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	SampleRate  float64
}

// InitTracing sets up a stdout-exporting tracer provider. There is no
// collector endpoint by design (SPEC_FULL.md's non-goals exclude an
// external observability backend); traces are printed for local
// inspection and tooling that tails process stdout.
func InitTracing(ctx context.Context, cfg TracingConfig, serviceVersion string) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, eris.Wrap(err, "telemetry: build resource")
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, eris.Wrap(err, "telemetry: build stdout exporter")
	}

	sampler := sdktrace.TraceIDRatioBased(clampSampleRate(cfg.SampleRate))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

func clampSampleRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}

// Tracer returns a named tracer for starting spans in application code.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
