package sentry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybergodev/logrepo"
)

const testDSN = "https://public@sentry.example.com/1"

// eventSink captures events in BeforeSend and drops them, so nothing leaves
// the process.
type eventSink struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (s *eventSink) beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

func (s *eventSink) all() []*sentry.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*sentry.Event(nil), s.events...)
}

func newHub(t *testing.T) (*sentry.Hub, *eventSink) {
	t.Helper()
	sink := &eventSink{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:        testDSN,
		SampleRate: 1.0,
		BeforeSend: sink.beforeSend,
	})
	require.NoError(t, err)
	return sentry.NewHub(client, sentry.NewScope()), sink
}

type fakeCapturer struct {
	messages   []string
	exceptions []error
	flushed    bool
}

func (f *fakeCapturer) CaptureMessage(message string) *sentry.EventID {
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeCapturer) CaptureException(err error) *sentry.EventID {
	f.exceptions = append(f.exceptions, err)
	return nil
}

func (f *fakeCapturer) Flush(time.Duration) bool {
	f.flushed = true
	return true
}

func TestHubProfile(t *testing.T) {
	hub, sink := newHub(t)
	a := New()
	require.NoError(t, a.Initialize(context.Background(), Config{Enabled: true, Client: hub}))
	assert.Equal(t, "hub", a.Profile())

	a.Log(logrepo.LevelWarn, "disk almost full", &logrepo.LogContext{
		Tag:      "storage",
		Function: "check",
		Data:     map[string]any{"free": "2%"},
		Metadata: map[string]any{"host": "db-1"},
	})

	events := sink.all()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, sentry.LevelWarning, ev.Level)
	assert.Equal(t, "disk almost full", ev.Message)
	assert.Equal(t, "storage", ev.Tags["tag"])
	assert.Equal(t, "check", ev.Tags["function"])
	assert.Equal(t, sentry.Context{"free": "2%"}, ev.Contexts["data"])
	assert.Equal(t, sentry.Context{"host": "db-1"}, ev.Contexts["metadata"])
}

func TestHubProfileCapturesErrors(t *testing.T) {
	hub, sink := newHub(t)
	a := New()
	require.NoError(t, a.Initialize(context.Background(), Config{Enabled: true, Client: hub}))

	a.Log(logrepo.LevelError, "payment failed", &logrepo.LogContext{Error: errors.New("gateway timeout")})

	events := sink.all()
	require.Len(t, events, 1)
	require.NotEmpty(t, events[0].Exception)
	assert.Equal(t, "gateway timeout", events[0].Exception[len(events[0].Exception)-1].Value)
	assert.Equal(t, sentry.LevelError, events[0].Level)
}

//go:noinline
func newDeclinedError() error {
	return pkgerrors.New("charge declined")
}

func TestHubProfileKeepsStackOfSanitizedErrors(t *testing.T) {
	hub, sink := newHub(t)
	a := New()
	require.NoError(t, a.Initialize(context.Background(), Config{Enabled: true, Client: hub}))

	sanitized := logrepo.NewDefaultSanitizer().Sanitize(newDeclinedError())
	require.IsType(t, &logrepo.SanitizedError{}, sanitized)

	a.Log(logrepo.LevelError, "payment failed", &logrepo.LogContext{Error: sanitized})

	events := sink.all()
	require.Len(t, events, 1)
	var outer *sentry.Exception
	for i := range events[0].Exception {
		if events[0].Exception[i].Type == "*logrepo.SanitizedError" {
			outer = &events[0].Exception[i]
		}
	}
	require.NotNil(t, outer, "sanitized error should be reported")
	require.NotNil(t, outer.Stacktrace)

	var fromOrigin bool
	for _, frame := range outer.Stacktrace.Frames {
		if strings.HasSuffix(frame.Function, "newDeclinedError") {
			fromOrigin = true
		}
	}
	assert.True(t, fromOrigin, "stack should start where the error was created")
}

func TestClientProfileAndBreadcrumbs(t *testing.T) {
	sink := &eventSink{}
	client, err := sentry.NewClient(sentry.ClientOptions{Dsn: testDSN, SampleRate: 1.0, BeforeSend: sink.beforeSend})
	require.NoError(t, err)

	a := New()
	require.NoError(t, a.Initialize(context.Background(), Config{
		Enabled:     true,
		Client:      client,
		MinLevel:    logrepo.LevelError,
		Breadcrumbs: true,
	}))
	assert.Equal(t, "hub", a.Profile())

	a.Log(logrepo.LevelInfo, "user clicked", nil)
	a.Log(logrepo.LevelError, "crash", nil)

	events := sink.all()
	require.Len(t, events, 1)
	require.Len(t, events[0].Breadcrumbs, 1)
	assert.Equal(t, "user clicked", events[0].Breadcrumbs[0].Message)
	assert.Equal(t, sentry.LevelInfo, events[0].Breadcrumbs[0].Level)
}

func TestCapturerProfile(t *testing.T) {
	c := &fakeCapturer{}
	a := New()
	require.NoError(t, a.Initialize(context.Background(), &Config{Enabled: true, Client: c}))
	assert.Equal(t, "capturer", a.Profile())

	a.Log(logrepo.LevelInfo, "hello", &logrepo.LogContext{Tag: "[api]"})
	cause := errors.New("boom")
	a.Log(logrepo.LevelError, "request failed", &logrepo.LogContext{Error: cause})

	assert.Equal(t, []string{"[api] [info] hello"}, c.messages)
	require.Len(t, c.exceptions, 1)
	assert.ErrorIs(t, c.exceptions[0], cause)
	assert.Contains(t, c.exceptions[0].Error(), "request failed")

	require.NoError(t, a.Destroy(context.Background()))
	assert.True(t, c.flushed)
	assert.False(t, a.IsEnabled())
}

func TestUnsupportedClientIsPermanent(t *testing.T) {
	a := New()

	err := a.Initialize(context.Background(), Config{Enabled: true, Client: "not a client"})
	assert.ErrorIs(t, err, ErrUnsupportedClient)
	assert.False(t, a.IsEnabled())
	assert.Equal(t, "unsupported", a.Profile())

	err = a.Initialize(context.Background(), Config{Enabled: true, Client: &fakeCapturer{}})
	assert.ErrorIs(t, err, ErrUnsupportedClient)
	assert.False(t, a.IsEnabled())
}

func TestInitializeErrors(t *testing.T) {
	ctx := context.Background()

	assert.Error(t, New().Initialize(ctx, Config{Enabled: true}))
	assert.Error(t, New().Initialize(ctx, Config{Enabled: true, DSN: "::not a dsn::"}))
	assert.Error(t, New().Initialize(ctx, "config"))
	assert.Error(t, New().Initialize(ctx, (*Config)(nil)))
}

func TestDSNProfile(t *testing.T) {
	sink := &eventSink{}
	a := New()
	require.NoError(t, a.Initialize(context.Background(), Config{
		Enabled:       true,
		DSN:           testDSN,
		ClientOptions: sentry.ClientOptions{BeforeSend: sink.beforeSend, SampleRate: 1.0},
	}))
	assert.Equal(t, "hub", a.Profile())

	a.Log(logrepo.LevelError, "from dsn", nil)
	require.Len(t, sink.all(), 1)

	require.NoError(t, a.Destroy(context.Background()))
	assert.Equal(t, "none", a.Profile())
}

func TestLevelMapping(t *testing.T) {
	assert.Equal(t, sentry.LevelDebug, sentryLevel(logrepo.LevelDebug))
	assert.Equal(t, sentry.LevelInfo, sentryLevel(logrepo.LevelInfo))
	assert.Equal(t, sentry.LevelWarning, sentryLevel(logrepo.LevelWarn))
	assert.Equal(t, sentry.LevelError, sentryLevel(logrepo.LevelError))
}
