package logrepo_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybergodev/logrepo"
)

var fixedTime = time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC)

func TestTextFormatter(t *testing.T) {
	f := logrepo.NewTextFormatter()

	tests := []struct {
		name  string
		level logrepo.Level
		lc    *logrepo.LogContext
		want  string
	}{
		{
			name:  "message only",
			level: logrepo.LevelInfo,
			lc:    &logrepo.LogContext{Timestamp: fixedTime},
			want:  "[INFO] 2024-01-02T03:04:05.006Z msg",
		},
		{
			name:  "tag location and data",
			level: logrepo.LevelWarn,
			lc: &logrepo.LogContext{
				Timestamp: fixedTime,
				Tag:       "db",
				Function:  "Query",
				File:      "db.go",
				Data:      map[string]any{"n": 1},
			},
			want: `[WARN] 2024-01-02T03:04:05.006Z [db] [Query:db.go] msg {"n":1}`,
		},
		{
			name:  "bracketed tag and file only",
			level: logrepo.LevelDebug,
			lc:    &logrepo.LogContext{Timestamp: fixedTime, Tag: "[db]", File: "db.go"},
			want:  "[DEBUG] 2024-01-02T03:04:05.006Z [db] [db.go] msg",
		},
		{
			name:  "error and metadata",
			level: logrepo.LevelError,
			lc: &logrepo.LogContext{
				Timestamp: fixedTime,
				Error:     errors.New("boom"),
				Metadata:  map[string]any{"k": "v"},
			},
			want: "[ERROR] 2024-01-02T03:04:05.006Z msg\nError: Error: boom\nMetadata: {\"k\":\"v\"}",
		},
		{
			name:  "string error",
			level: logrepo.LevelError,
			lc:    &logrepo.LogContext{Timestamp: fixedTime, Error: "plain failure"},
			want:  "[ERROR] 2024-01-02T03:04:05.006Z msg\nError: plain failure",
		},
		{
			name:  "object error",
			level: logrepo.LevelError,
			lc:    &logrepo.LogContext{Timestamp: fixedTime, Error: map[string]any{"code": 7}},
			want:  "[ERROR] 2024-01-02T03:04:05.006Z msg\nError: {\"code\":7}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := f.Format(tt.level, "msg", tt.lc)
			assert.Equal(t, tt.want, out.Text)
			assert.False(t, out.HasJSON())
		})
	}
}

func TestTextFormatter_Unserializable(t *testing.T) {
	cyclic := map[string]any{}
	cyclic["self"] = cyclic

	out := logrepo.NewTextFormatter().Format(logrepo.LevelInfo, "msg", &logrepo.LogContext{Timestamp: fixedTime, Data: cyclic})

	assert.True(t, strings.HasSuffix(out.Text, "msg [Unserializable: map[string]interface {}]"), out.Text)
}

func TestTextFormatter_SanitizedErrorStack(t *testing.T) {
	err := &logrepo.SanitizedError{Name: "TimeoutError", Message: "timed out", Trace: "at main.go:10"}

	out := logrepo.NewTextFormatter().Format(logrepo.LevelError, "msg", &logrepo.LogContext{Timestamp: fixedTime, Error: err})

	assert.True(t, strings.HasSuffix(out.Text, "\nError: TimeoutError: timed out\nat main.go:10"), out.Text)
}

func TestJSONFormatter(t *testing.T) {
	f := logrepo.NewJSONFormatter()

	t.Run("required keys only", func(t *testing.T) {
		out := f.Format(logrepo.LevelInfo, "hello", &logrepo.LogContext{Timestamp: fixedTime})
		assert.Equal(t, map[string]any{
			"timestamp": "2024-01-02T03:04:05.006Z",
			"level":     "info",
			"message":   "hello",
		}, out.JSON)
		assert.False(t, out.HasText())
	})

	t.Run("all keys", func(t *testing.T) {
		out := f.Format(logrepo.LevelError, "hello", &logrepo.LogContext{
			Timestamp: fixedTime,
			Tag:       "api",
			File:      "api.go",
			Function:  "Serve",
			Data:      []int{1},
			Metadata:  map[string]any{"trace": "t-1"},
			Error:     errors.New("boom"),
		})
		assert.Equal(t, "api", out.JSON["tag"])
		assert.Equal(t, "api.go", out.JSON["file"])
		assert.Equal(t, "Serve", out.JSON["function"])
		assert.Equal(t, []int{1}, out.JSON["data"])
		assert.Equal(t, map[string]any{"trace": "t-1"}, out.JSON["metadata"])
		assert.Equal(t, map[string]any{"name": "Error", "message": "boom", "stack": ""}, out.JSON["error"])
	})

	t.Run("nil context", func(t *testing.T) {
		out := f.Format(logrepo.LevelWarn, "hello", nil)
		assert.Len(t, out.JSON, 3)
		assert.Equal(t, "warn", out.JSON["level"])
	})

	t.Run("formatted slot is not repeated", func(t *testing.T) {
		out := f.Format(logrepo.LevelInfo, "hello", &logrepo.LogContext{
			Timestamp: fixedTime,
			Metadata:  map[string]any{logrepo.FormattedOutputKey: logrepo.FormattedOutput{Text: "x"}},
		})
		assert.NotContains(t, out.JSON, "metadata")
	})
}

func TestCombinedFormatter_SharesTimestamp(t *testing.T) {
	out := logrepo.NewCombinedFormatter().Format(logrepo.LevelInfo, "hello", &logrepo.LogContext{Tag: "x"})

	require.True(t, out.HasText())
	require.True(t, out.HasJSON())
	ts, ok := out.JSON["timestamp"].(string)
	require.True(t, ok)
	assert.Contains(t, out.Text, ts)
}

func TestNewFormatter(t *testing.T) {
	for _, kind := range []string{"", "none", " NONE "} {
		f, err := logrepo.NewFormatter(kind)
		require.NoError(t, err)
		assert.Nil(t, f, kind)
	}

	f, err := logrepo.NewFormatter("Text")
	require.NoError(t, err)
	assert.IsType(t, &logrepo.TextFormatter{}, f)

	f, err = logrepo.NewFormatter("json")
	require.NoError(t, err)
	assert.IsType(t, &logrepo.JSONFormatter{}, f)

	f, err = logrepo.NewFormatter("combined")
	require.NoError(t, err)
	assert.IsType(t, &logrepo.CombinedFormatter{}, f)

	_, err = logrepo.NewFormatter("xml")
	assert.ErrorIs(t, err, logrepo.ErrInvalidFormatter)
}

func TestFormatterFunc(t *testing.T) {
	f := logrepo.FormatterFunc(func(level logrepo.Level, message string, _ *logrepo.LogContext) logrepo.FormattedOutput {
		return logrepo.FormattedOutput{Text: level.Upper() + ":" + message}
	})

	assert.Equal(t, "WARN:m", f.Format(logrepo.LevelWarn, "m", nil).Text)
}

func TestFormattedOutputFrom(t *testing.T) {
	_, ok := logrepo.FormattedOutputFrom(nil)
	assert.False(t, ok)

	ptr := &logrepo.FormattedOutput{Text: "p"}
	out, ok := logrepo.FormattedOutputFrom(&logrepo.LogContext{Metadata: map[string]any{logrepo.FormattedOutputKey: ptr}})
	require.True(t, ok)
	assert.Equal(t, "p", out.Text)

	_, ok = logrepo.FormattedOutputFrom(&logrepo.LogContext{Metadata: map[string]any{logrepo.FormattedOutputKey: "text"}})
	assert.False(t, ok)
}
