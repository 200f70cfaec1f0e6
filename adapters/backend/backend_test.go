package backend

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cybergodev/logrepo"
)

var eventTime = time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

func sampleContext() *logrepo.LogContext {
	return &logrepo.LogContext{
		Tag:       "billing",
		File:      "invoice.go",
		Function:  "Charge",
		Data:      map[string]any{"amount": 42},
		Error:     errors.New("card declined"),
		Timestamp: eventTime,
		Metadata: map[string]any{
			"request_id":                 "r-1",
			logrepo.FormattedOutputKey: logrepo.FormattedOutput{Text: "[billing] rendered line"},
		},
	}
}

func initAdapter(t *testing.T, cfg Config) *Adapter {
	t.Helper()
	a := New()
	require.NoError(t, a.Initialize(context.Background(), cfg))
	t.Cleanup(func() { _ = a.Destroy(context.Background()) })
	return a
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a := initAdapter(t, Config{Enabled: true, Logger: zap.New(core)})
	assert.Equal(t, "zap", a.Kind())

	a.Log(logrepo.LevelError, "charge failed", sampleContext())

	entries := logs.All()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "charge failed", e.Message)
	assert.Equal(t, zapcore.ErrorLevel, e.Level)
	assert.Equal(t, eventTime, e.Time)

	fields := e.ContextMap()
	assert.Equal(t, "billing", fields["tag"])
	assert.Equal(t, "invoice.go", fields["file"])
	assert.Equal(t, "Charge", fields["function"])
	assert.Equal(t, "card declined", fields["error"])
	assert.Equal(t, map[string]any{"request_id": "r-1"}, fields["metadata"])
}

func TestZapSugaredLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	a := initAdapter(t, Config{Enabled: true, Logger: zap.New(core).Sugar()})

	a.Log(logrepo.LevelDebug, "below core level", nil)
	a.Log(logrepo.LevelWarn, "warned", nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestZerolog(t *testing.T) {
	var buf bytes.Buffer
	a := initAdapter(t, Config{Enabled: true, Logger: zerolog.New(&buf)})
	assert.Equal(t, "zerolog", a.Kind())

	a.Log(logrepo.LevelWarn, "charge slow", sampleContext())

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "charge slow", line["message"])
	assert.Equal(t, "billing", line["tag"])
	assert.Equal(t, "card declined", line["error"])
	assert.Equal(t, eventTime.Format(zerolog.TimeFieldFormat), line["event_time"])
	assert.Equal(t, map[string]any{"amount": float64(42)}, line["data"])
}

func TestZerologPointer(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).Level(zerolog.WarnLevel)
	a := initAdapter(t, Config{Enabled: true, Logger: &l})

	a.Log(logrepo.LevelInfo, "dropped by zerolog", nil)
	a.Log(logrepo.LevelError, "kept", nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["message"])
}

func TestSlog(t *testing.T) {
	var buf bytes.Buffer
	a := initAdapter(t, Config{Enabled: true, Logger: slog.New(slog.NewJSONHandler(&buf, nil))})
	assert.Equal(t, "slog", a.Kind())

	a.Log(logrepo.LevelDebug, "dropped by handler", nil)
	a.Log(logrepo.LevelError, "charge failed", sampleContext())

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "ERROR", line["level"])
	assert.Equal(t, "charge failed", line["msg"])
	assert.Equal(t, "Charge", line["function"])
	assert.Equal(t, "card declined", line["error"])
	assert.Equal(t, map[string]any{"request_id": "r-1"}, line["metadata"])
}

func TestFormattedMessage(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a := initAdapter(t, Config{Enabled: true, Logger: zap.New(core), Formatted: true})

	a.Log(logrepo.LevelInfo, "raw", sampleContext())
	a.Log(logrepo.LevelInfo, "no rendering", &logrepo.LogContext{})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "[billing] rendered line", entries[0].Message)
	assert.Equal(t, "no rendering", entries[1].Message)
}

func TestMinLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a := initAdapter(t, Config{Enabled: true, Logger: zap.New(core), MinLevel: logrepo.LevelError})

	a.Log(logrepo.LevelWarn, "filtered", nil)
	a.Log(logrepo.LevelError, "passed", nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "passed", logs.All()[0].Message)
}

func TestNonErrorValue(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a := initAdapter(t, Config{Enabled: true, Logger: zap.New(core)})

	a.Log(logrepo.LevelError, "odd failure", &logrepo.LogContext{Error: "plain string"})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "plain string", logs.All()[0].ContextMap()["error"])
}

func TestUnsupportedLoggerIsPermanent(t *testing.T) {
	a := New()

	err := a.Initialize(context.Background(), Config{Enabled: true, Logger: "stdout"})
	assert.ErrorIs(t, err, ErrUnsupportedLogger)
	assert.Equal(t, "unsupported", a.Kind())

	core, _ := observer.New(zapcore.DebugLevel)
	err = a.Initialize(context.Background(), Config{Enabled: true, Logger: zap.New(core)})
	assert.ErrorIs(t, err, ErrUnsupportedLogger)
	assert.False(t, a.IsEnabled())
}

func TestInitializeErrors(t *testing.T) {
	ctx := context.Background()
	a := New()
	assert.Error(t, a.Initialize(ctx, Config{Enabled: true}))
	assert.Equal(t, "none", a.Kind())
	assert.Error(t, a.Initialize(ctx, (*Config)(nil)))
	assert.Error(t, a.Initialize(ctx, 7))
}

func TestDestroyDisables(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a := New()
	require.NoError(t, a.Initialize(context.Background(), &Config{Enabled: true, Logger: zap.New(core)}))

	require.NoError(t, a.Destroy(context.Background()))
	a.Log(logrepo.LevelError, "after destroy", nil)

	assert.False(t, a.IsEnabled())
	assert.Zero(t, logs.Len())
}
