// Package telemetry wires OpenTelemetry tracing for a run.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"

	"methcall/internal/version"
)

type TracerOption func(d *tracerConfig)

func WithOTLPEndpoint(endpoint string) TracerOption {
	return func(d *tracerConfig) {
		d.endpoint = endpoint
	}
}

func WithServiceName(serviceName string) TracerOption {
	return func(d *tracerConfig) {
		d.serviceName = serviceName
	}
}

func WithSamplingRatio(samplingRatio float64) TracerOption {
	return func(d *tracerConfig) {
		d.samplingRatio = samplingRatio
	}
}

// WithExporter replaces the OTLP exporter, e.g. with an in-memory one.
func WithExporter(exp sdktrace.SpanExporter) TracerOption {
	return func(d *tracerConfig) {
		d.exporter = exp
	}
}

type tracerConfig struct {
	endpoint      string
	serviceName   string
	samplingRatio float64
	exporter      sdktrace.SpanExporter
}

// NewTracerProvider builds a provider exporting over OTLP/gRPC and installs
// it as the global provider. The caller must Shutdown it to flush spans.
func NewTracerProvider(ctx context.Context, opts ...TracerOption) (*sdktrace.TracerProvider, error) {
	cfg := &tracerConfig{
		serviceName:   "methcall",
		samplingRatio: 1,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceNameKey.String(cfg.serviceName),
			semconv.ServiceVersionKey.String(version.Version),
		))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	exp := cfg.exporter
	if exp == nil {
		exp, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(cfg.endpoint),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create the otlp exporter: %w", err)
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.samplingRatio))),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exp)),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	otel.SetTracerProvider(tp)

	return tp, nil
}

// TraceError marks span as failed with err.
func TraceError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
