package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracer_NoEndpointReturnsNoopTracer(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "test"})
	require.NotNil(t, tracer)

	ctx, span := tracer.TraceTurn(context.Background(), "sess-1", "cli")
	assert.NotNil(t, span)
	span.End()

	require.NoError(t, shutdown(ctx))
}

func TestTracer_RecordErrorNilIsNoop(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "test"})
	defer shutdown(context.Background())

	_, span := tracer.TraceToolDispatch(context.Background(), "web_search", "single")
	assert.NotPanics(t, func() { tracer.RecordError(span, nil) })
	span.End()
}

func TestTracer_RecordErrorSetsStatus(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "test"})
	defer shutdown(context.Background())

	_, span := tracer.TraceModelRequest(context.Background(), "anthropic", "claude-sonnet")
	assert.NotPanics(t, func() { tracer.RecordError(span, errors.New("boom")) })
	span.End()
}

func TestGetTraceID_EmptyWithoutActiveSpan(t *testing.T) {
	assert.Equal(t, "", GetTraceID(context.Background()))
}
