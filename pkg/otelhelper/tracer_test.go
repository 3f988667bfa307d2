package otelhelper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/skillhub/flowcore/pkg/otelhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewTracer_Disabled(t *testing.T) {
	tracer, shutdown, err := otelhelper.NewTracer(context.Background(), "flowcore-test", false)
	require.NoError(t, err)
	require.NotNil(t, tracer)

	_, span := otelhelper.StartSpan(context.Background(), tracer, "noop")
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}

func TestSetError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, span := otelhelper.StartSpan(context.Background(), tracer, "workflow.activate",
		attribute.String(otelhelper.WorkflowIDKey, "wf-1"))
	otelhelper.SetError(span, errors.New("graph is invalid"))
	span.End()

	_, ok := otelhelper.StartSpan(context.Background(), tracer, "workflow.get")
	otelhelper.SetError(ok, nil)
	ok.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "graph is invalid", spans[0].Status().Description)
	assert.Contains(t, spans[0].Attributes(), attribute.String(otelhelper.WorkflowIDKey, "wf-1"))
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
}
