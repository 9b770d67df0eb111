package common

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// InitTracing installs a global OTLP/HTTP tracer provider when tracing is
// enabled. The returned function flushes and stops it; it is never nil.
func InitTracing(ctx context.Context, cfg TracingConfig, logger *slog.Logger) func(context.Context) error {
	if logger == nil {
		logger = slog.Default()
	}
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		logger.Debug("tracing.disabled")
		return noop
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("tracing.exporter_error", "endpoint", cfg.Endpoint, "error", err)
		return noop
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.ServiceName),
		)),
	)
	otel.SetTracerProvider(tp)
	logger.Info("tracing.enabled", "endpoint", cfg.Endpoint, "service", cfg.ServiceName)
	return tp.Shutdown
}
