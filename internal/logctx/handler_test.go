package logctx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output: %s", buf.String())

	return entry
}

func TestHandler_NoContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "inquire", "input_uri", "example.com/v/1")

	entry := decodeRecord(t, &buf)
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
	assert.NotContains(t, entry, "job_id")
	assert.Equal(t, "example.com/v/1", entry["input_uri"])
}

func TestHandler_InjectsJobAndTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil)))

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "download")
	defer span.End()

	ctx = WithJobID(ctx, "job-1")
	logger.InfoContext(ctx, "download complete")

	entry := decodeRecord(t, &buf)
	assert.Equal(t, "job-1", entry["job_id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
}

func TestHandler_Enabled(t *testing.T) {
	h := NewHandler(slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}))

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
}

func TestHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(slog.NewJSONHandler(&buf, nil))

	withAttrs := h.WithAttrs([]slog.Attr{slog.String("component", "downloader")})
	assert.IsType(t, &Handler{}, withAttrs)

	withGroup := withAttrs.WithGroup("transfer")
	assert.IsType(t, &Handler{}, withGroup)

	slog.New(withGroup).InfoContext(WithJobID(context.Background(), "job-2"), "progress", "bytes", 10)

	entry := decodeRecord(t, &buf)
	assert.Equal(t, "downloader", entry["component"])
	assert.Contains(t, entry, "transfer")
}

func TestNewHandler_NilPanics(t *testing.T) {
	assert.Panics(t, func() { NewHandler(nil) })
}

func TestLoggerFromContext(t *testing.T) {
	assert.Same(t, slog.Default(), LoggerFromContext(context.Background()))

	logger := New(&bytes.Buffer{}, slog.LevelDebug, "json")
	ctx := WithLogger(context.Background(), logger)

	assert.Same(t, logger, LoggerFromContext(ctx))
	assert.Equal(t, "", JobIDFromContext(ctx))
}

func TestNew_Format(t *testing.T) {
	var buf bytes.Buffer

	New(&buf, slog.LevelInfo, "text").Info("hello", "key", "value")
	assert.Contains(t, buf.String(), "key=value")

	buf.Reset()
	New(&buf, slog.LevelInfo, "JSON").Info("hello", "key", "value")
	assert.Equal(t, "value", decodeRecord(t, &buf)["key"])
}
