package otel

import (
	"context"
	"strings"

	"github.com/louisbranch/viewscore/internal/platform/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

type settings struct {
	Endpoint string `env:"OTEL_ENDPOINT"`
	Enabled  string `env:"OTEL_ENABLED"`
}

// Setup initialises OpenTelemetry tracing for the given service.
//
// Tracing is opt-in: when VIEWSCORE_OTEL_ENDPOINT is empty or
// VIEWSCORE_OTEL_ENABLED is "false", Setup returns a no-op shutdown function
// and leaves the global no-op provider in place.
//
// The returned shutdown function flushes pending spans and should be deferred
// by the caller.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	var cfg settings
	if err := config.ParseEnv(&cfg); err != nil {
		return noop, err
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if strings.EqualFold(strings.TrimSpace(cfg.Enabled), "false") || endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// Tracer returns a tracer from the global provider for an instrumentation
// scope such as "github.com/louisbranch/viewscore/internal/tools/viewscore/evaluation".
func Tracer(scope string) trace.Tracer {
	return otel.Tracer(scope)
}
