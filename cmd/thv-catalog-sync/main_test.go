package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stacklok/toolhive-core/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(&traceHandler{Handler: logging.NewHandler(logging.WithOutput(&buf))})

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02, 0x03},
		SpanID:     trace.SpanID{0x04, 0x05},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.With("component", "ingest").InfoContext(ctx, "Ingestion pass completed", "repositories", 3)
	logger.DebugContext(ctx, "filtered out")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1, "debug records are dropped at the default level")

	var record map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &record))
	assert.Equal(t, sc.TraceID().String(), record["trace_id"])
	assert.Equal(t, sc.SpanID().String(), record["span_id"])
	assert.Equal(t, "ingest", record["component"])
	assert.InDelta(t, 3, record["repositories"], 0)

	_, err := time.Parse(time.RFC3339, record["time"].(string))
	require.NoError(t, err)

	buf.Reset()
	logger.Info("no span")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		prefixed string
		plain    string
		expected slog.Level
	}{
		{name: "default", expected: slog.LevelInfo},
		{name: "prefixed variable", prefixed: "debug", expected: slog.LevelDebug},
		{name: "plain fallback", plain: "WARNING", expected: slog.LevelWarn},
		{name: "prefixed wins", prefixed: "error", plain: "debug", expected: slog.LevelError},
		{name: "unknown value", prefixed: "verbose", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("THV_CATALOG_LOG_LEVEL", tt.prefixed)
			t.Setenv("LOG_LEVEL", tt.plain)
			assert.Equal(t, tt.expected, getLogLevel())
		})
	}
}
