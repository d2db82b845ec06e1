package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var out []map[string]interface{}
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestAppLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Format: "json", Output: &buf})

	logger.Debug(context.Background(), "hidden")
	logger.WithComponent("todo").With("todos", 2).Info(context.Background(), "appended", "item", "Buy milk")
	logger.Error(context.Background(), errors.New("boom"), "failed")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "appended", lines[0]["msg"])
	assert.Equal(t, "todo", lines[0]["component"])
	assert.Equal(t, "Buy milk", lines[0]["item"])
	assert.Equal(t, float64(2), lines[0]["todos"])

	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, "boom", lines[1]["error"])
}

func TestAppLoggerText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "text", Output: &buf})

	logger.Debug(context.Background(), "visible", "key", "value")

	out := buf.String()
	assert.True(t, strings.Contains(out, "level=DEBUG"))
	assert.True(t, strings.Contains(out, "key=value"))
}

func TestAppLoggerTraceCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Output: &buf})

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.Info(ctx, "inside span")
	span.End()

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, span.SpanContext().TraceID().String(), lines[0]["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), lines[0]["span_id"])
}

func TestOddFieldsAreDropped(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Output: &buf})

	logger.Info(context.Background(), "odd", "a", 1, "dangling", 42, "b")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, float64(1), lines[0]["a"])
	assert.NotContains(t, lines[0], "b")
}

func TestAppLoggerAddSource(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&LoggerConfig{Level: LevelInfo, Output: &buf, AddSource: true}).Info(context.Background(), "with source")
	NewLogger(&LoggerConfig{Level: LevelInfo, Output: &buf}).Info(context.Background(), "without source")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	source, ok := lines[0]["source"].(map[string]interface{})
	require.True(t, ok, "source attribute missing")
	assert.Contains(t, source["file"], "logger.go")
	assert.NotContains(t, lines[1], "source")
}

func TestSlogBridge(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Output: &buf})

	std := slog.NewLogLogger(logger.Slog().Handler(), slog.LevelError)
	std.Printf("http: TLS handshake error from %s: EOF", "10.0.0.1:4242")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Equal(t, "http: TLS handshake error from 10.0.0.1:4242: EOF", lines[0]["msg"])
}

func TestNop(t *testing.T) {
	logger := Nop()

	assert.NotPanics(t, func() {
		ctx := context.Background()
		logger.Debug(ctx, "d")
		logger.Info(ctx, "i")
		logger.Warn(ctx, errors.New("w"), "w")
		logger.WithComponent("x").With("k", "v").Error(ctx, errors.New("e"), "e")
	})
	assert.False(t, logger.Slog().Enabled(context.Background(), slog.LevelDebug))
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	child := rec.WithComponent("diagnostic").With("request", "r1")

	child.Info(context.Background(), "C", "value", 0.25)
	rec.Error(context.Background(), errors.New("x"), "E")

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "diagnostic", entries[0].Component)
	assert.Equal(t, "r1", entries[0].Fields["request"])
	assert.Equal(t, 0.25, entries[0].Fields["value"])
	assert.Equal(t, 1, rec.Count(LevelInfo))
	assert.Equal(t, 1, rec.Count(LevelError))

	rec.Reset()
	assert.Empty(t, rec.Entries())
}
