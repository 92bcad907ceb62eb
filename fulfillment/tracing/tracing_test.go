package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInit_StdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, err := Init("order-test", ExporterStdout, &buf, nil)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "reserve_inventory")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name":"reserve_inventory"`)
	assert.Contains(t, buf.String(), "order-test")
}

func TestInit_None(t *testing.T) {
	var buf bytes.Buffer
	tp, err := Init("order-test", ExporterNone, &buf, nil)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "verify_payment")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))
	assert.Empty(t, buf.String())
}

func TestInit_UnknownExporter(t *testing.T) {
	_, err := Init("order-test", "jaeger", nil, nil)
	require.Error(t, err)
}
