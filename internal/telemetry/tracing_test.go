package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracing(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp, err := NewTracerProvider(context.Background(),
		WithServiceName("servicename"),
		WithSamplingRatio(1),
		WithExporter(exp),
	)
	require.NoError(t, err)
	require.Same(t, tp, otel.GetTracerProvider())

	_, span := otel.Tracer("").Start(context.Background(), "test")
	TraceError(span, errors.New("boom"))
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "test", spans[0].Name)
	require.Equal(t, codes.Error, spans[0].Status.Code)
	require.Equal(t, "boom", spans[0].Status.Description)
	require.Len(t, spans[0].Events, 1)
	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestTracing_ZeroRatioSamplesNothing(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp, err := NewTracerProvider(context.Background(), WithSamplingRatio(0), WithExporter(exp))
	require.NoError(t, err)

	_, span := tp.Tracer("").Start(context.Background(), "dropped")
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))
	require.Empty(t, exp.GetSpans())
	require.NoError(t, tp.Shutdown(context.Background()))
}
