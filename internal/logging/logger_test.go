package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"alcyxob/gym-scheduler/internal/logging"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestLogger_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "gym-scheduler", "info")

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "booked", "plan_id", "p1")
	span.End()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "booked", line["msg"])
	require.Equal(t, "gym-scheduler", line["service"])
	require.Equal(t, span.SpanContext().TraceID().String(), line["trace_id"])
	require.Equal(t, span.SpanContext().SpanID().String(), line["span_id"])
}

func TestLogger_NoSpanNoIDs(t *testing.T) {
	var buf bytes.Buffer
	logging.New(&buf, "svc", "debug").DebugContext(context.Background(), "hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.NotContains(t, line, "trace_id")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, logging.ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, logging.ParseLevel("warning"))
	require.Equal(t, slog.LevelError, logging.ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, logging.ParseLevel("bogus"))
}
