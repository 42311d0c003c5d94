package observability

import (
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

func TestTracer_TraceFunction(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	tracer := NewTracer("treeservice")

	require.NoError(t, tracer.TraceFunction(context.Background(), "ok", func(ctx context.Context) error {
		AddAnnotation(ctx, "projectID", "p1")
		return nil
	}))
	err := tracer.TraceFunction(context.Background(), "fails", func(context.Context) error {
		return errors.New("boom")
	})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "treeservice.ok", spans[0].Name())
	assert.Equal(t, "p1", spans[0].Attributes()[0].Value.AsString())
	assert.Equal(t, "treeservice.fails", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
