package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useSpanRecorder installs a recording tracer provider globally for the test
func useSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})
	return recorder
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value
	}
	return out
}

func TestStartServiceSpan(t *testing.T) {
	recorder := useSpanRecorder(t)
	tenantID := uuid.New()

	_, span := StartServiceSpan(context.Background(), "posting", "post", attribute.String(SpanAttrTenantID, tenantID.String()))
	SetAttributes(span,
		SpanAttrLineCount, 3,
		SpanAttrTotalCents, int64(4500),
		SpanAttrTransactionID, tenantID,
		42, "skipped",
	)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "posting.post", spans[0].Name())
	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, tenantID.String(), attrs[SpanAttrTenantID].AsString())
	assert.Equal(t, int64(3), attrs[SpanAttrLineCount].AsInt64())
	assert.Equal(t, int64(4500), attrs[SpanAttrTotalCents].AsInt64())
	assert.Equal(t, tenantID.String(), attrs[SpanAttrTransactionID].AsString())
	assert.Len(t, attrs, 4)
}

func TestRecordError(t *testing.T) {
	recorder := useSpanRecorder(t)

	_, span := StartSpan(context.Background(), "template.initialize")
	RecordError(span, nil)
	RecordError(span, errors.New("chart already initialized"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "chart already initialized", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)

	assert.NotPanics(t, func() { RecordError(nil, errors.New("x")) })
	assert.NotPanics(t, func() { SetAttributes(nil, "k", "v") })
}
