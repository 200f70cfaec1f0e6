package logrepo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybergodev/logrepo"
	"github.com/cybergodev/logrepo/adapters/memory"
)

func TestPaymentFailureScenario(t *testing.T) {
	repo, warns := newRepository(t, func(cfg *logrepo.Config) {
		cfg.Formatters.Default = logrepo.NewCombinedFormatter()
	})

	capture := memory.New()
	require.NoError(t, repo.RegisterAdapter(context.Background(), "capture", capture, memory.Config{Enabled: true}))

	cause := errors.New("timeout")
	repo.Log(logrepo.LevelError, "Operation failed", &logrepo.LogContext{
		Tag:   "[Payment]",
		Error: cause,
		Data: map[string]any{
			"cardNumber": "4111111111111111",
			"customer": map[string]any{
				"email":    "john.doe@example.com",
				"password": "hunter2",
			},
			"note": "card 4111 1111 1111 1111 declined",
		},
	})

	entry, ok := capture.Last()
	require.True(t, ok)
	assert.Equal(t, logrepo.LevelError, entry.Level)
	assert.Equal(t, "Operation failed", entry.Message)
	assert.Equal(t, "[Payment]", entry.Context.Tag)

	data, ok := entry.Context.Data.(map[string]any)
	require.True(t, ok, "data should stay a map")
	assert.Equal(t, "[REDACTED]", data["cardNumber"])
	assert.Equal(t, "card [CARD_NUMBER] declined", data["note"])
	customer := data["customer"].(map[string]any)
	assert.Equal(t, "joh***@example.com", customer["email"])
	assert.Equal(t, "[REDACTED]", customer["password"])

	sanitized, ok := entry.Context.Error.(*logrepo.SanitizedError)
	require.True(t, ok, "error should be the sanitized form, got %T", entry.Context.Error)
	assert.Equal(t, "timeout", sanitized.Message)
	assert.ErrorIs(t, sanitized, cause)

	out, ok := logrepo.FormattedOutputFrom(entry.Context)
	require.True(t, ok)
	assert.Equal(t, "error", out.JSON["level"])
	assert.Equal(t, "Operation failed", out.JSON["message"])
	assert.Contains(t, out.Text, "[ERROR]")
	assert.Contains(t, out.Text, "[Payment]")
	assert.NotContains(t, out.Text, "4111")

	assert.Empty(t, warns.all())
}
