package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybergodev/logrepo"
)

var fixed = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newConsole(t *testing.T, cfg Config) (*Adapter, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg.Enabled = true
	cfg.Writer = &buf
	a := New()
	require.NoError(t, a.Initialize(context.Background(), cfg))
	return a, &buf
}

func TestLogWritesOneLine(t *testing.T) {
	a, buf := newConsole(t, Config{Color: ColorNever})

	a.Log(logrepo.LevelInfo, "started", &logrepo.LogContext{Tag: "app", Timestamp: fixed})

	assert.Equal(t, "[INFO] 2024-05-06T07:08:09.000Z [app] started\n", buf.String())
}

func TestMinLevel(t *testing.T) {
	a, buf := newConsole(t, Config{Color: ColorNever, MinLevel: logrepo.LevelError})

	a.Log(logrepo.LevelWarn, "quiet", nil)
	assert.Empty(t, buf.String())

	a.Log(logrepo.LevelError, "loud", nil)
	assert.Contains(t, buf.String(), "[ERROR]")
}

func TestUsesFormattedText(t *testing.T) {
	lc := &logrepo.LogContext{Metadata: map[string]any{
		logrepo.FormattedOutputKey: logrepo.FormattedOutput{Text: "[WARN] pre-rendered"},
	}}

	a, buf := newConsole(t, Config{Color: ColorNever})
	a.Log(logrepo.LevelWarn, "ignored", lc)
	assert.Equal(t, "[WARN] pre-rendered\n", buf.String())

	b, own := newConsole(t, Config{Color: ColorNever, IgnoreFormatted: true})
	b.Log(logrepo.LevelWarn, "rendered locally", lc)
	assert.Contains(t, own.String(), "rendered locally")
	assert.NotContains(t, own.String(), "pre-rendered")
}

func TestColorOnlyWrapsLevel(t *testing.T) {
	a, buf := newConsole(t, Config{Color: ColorAlways})

	a.Log(logrepo.LevelError, "failed", &logrepo.LogContext{Timestamp: fixed})

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\x1b["), out)
	assert.Contains(t, out, "[ERROR]\x1b[")
	assert.True(t, strings.HasSuffix(out, "m 2024-05-06T07:08:09.000Z failed\n"), out)
}

func TestControlCharactersAreEscaped(t *testing.T) {
	a, buf := newConsole(t, Config{Color: ColorNever})

	a.Log(logrepo.LevelInfo, "bell\x07 and \x1b[31mred", &logrepo.LogContext{Timestamp: fixed})

	assert.Equal(t, "[INFO] 2024-05-06T07:08:09.000Z bell\\x07 and red\n", buf.String())
}

func TestProvenance(t *testing.T) {
	calls := 0
	a, buf := newConsole(t, Config{
		Color: ColorNever,
		Provenance: func() (string, string) {
			calls++
			return "main.go:12", "main.run"
		},
	})

	a.Log(logrepo.LevelInfo, "from provenance", &logrepo.LogContext{Timestamp: fixed})
	a.Log(logrepo.LevelInfo, "explicit", &logrepo.LogContext{Timestamp: fixed, Function: "handler"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[main.run:main.go:12] from provenance")
	assert.Contains(t, lines[1], "[handler] explicit")
	assert.Equal(t, 1, calls)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestWriteErrorsGoToOnError(t *testing.T) {
	var got error
	a := New()
	require.NoError(t, a.Initialize(context.Background(), Config{
		Enabled: true,
		Writer:  failingWriter{},
		OnError: func(err error) { got = err },
	}))

	assert.NotPanics(t, func() { a.Log(logrepo.LevelError, "x", nil) })
	require.Error(t, got)
	assert.Contains(t, got.Error(), "disk gone")
}

func TestDisabledAndDestroyed(t *testing.T) {
	a := New()
	require.NoError(t, a.Initialize(context.Background(), Config{Enabled: false}))
	assert.False(t, a.IsEnabled())

	b, buf := newConsole(t, Config{Color: ColorNever})
	require.NoError(t, b.Destroy(context.Background()))
	b.Log(logrepo.LevelError, "after destroy", nil)
	assert.Empty(t, buf.String())

	assert.Error(t, New().Initialize(context.Background(), 42))
}
