// Package tracing wires OpenTelemetry spans around Coordinator operations
// and Delivery Worker attempts, adapted from the teacher's OTLP exporter
// (internal/tracing/otelexport in the original) down to a single tracer
// setup now that there's no LLM-span schema to bridge from.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the OTLP/HTTP exporter. An empty Endpoint disables
// export: Setup installs an SDK provider with no exporter, so spans are
// recorded but never sent anywhere.
type Config struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
}

// Setup installs a global TracerProvider and returns a shutdown func.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		otel.SetTracerProvider(sdktrace.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "scheduler-service"
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion("1.0.0"),
	))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp http exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithMaxExportBatchSize(100),
			sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

var tracer = otel.Tracer("scheduler-service")

// StartCoordinatorSpan wraps an engine.Coordinator operation (e.g.
// "engine.Create", "engine.Reactivate").
func StartCoordinatorSpan(ctx context.Context, op string, jobID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("scheduler.operation", op)}
	if jobID != "" {
		attrs = append(attrs, attribute.String("scheduler.job_id", jobID))
	}
	return tracer.Start(ctx, op, trace.WithAttributes(attrs...))
}

// StartDeliverySpan wraps one Delivery Worker HTTP attempt.
func StartDeliverySpan(ctx context.Context, jobID, target string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "worker.deliver", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("scheduler.job_id", jobID),
			semconv.URLFull(target),
		))
}

// EndWithError records an error (if non-nil) and sets the span status
// before the caller calls span.End().
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
