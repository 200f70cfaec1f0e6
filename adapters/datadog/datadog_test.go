package datadog

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybergodev/logrepo"
)

type incr struct {
	name string
	tags []string
	rate float64
}

type fakeSender struct {
	mu     sync.Mutex
	incrs  []incr
	events []*statsd.Event
	err    error
}

func (f *fakeSender) Incr(name string, tags []string, rate float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incrs = append(f.incrs, incr{name, tags, rate})
	return f.err
}

func (f *fakeSender) Event(e *statsd.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

func TestCountsEveryEvent(t *testing.T) {
	sender := &fakeSender{}
	a := New()
	require.NoError(t, a.Initialize(context.Background(), Config{
		Enabled: true,
		Client:  sender,
		Tags:    []string{"env:test"},
	}))

	a.Log(logrepo.LevelInfo, "hello", &logrepo.LogContext{Tag: "[Auth Service]"})

	require.Len(t, sender.incrs, 1)
	assert.Equal(t, DefaultMetric, sender.incrs[0].name)
	assert.Equal(t, []string{"env:test", "level:info", "tag:auth_service"}, sender.incrs[0].tags)
	assert.Equal(t, DefaultSampleRate, sender.incrs[0].rate)
	assert.Empty(t, sender.events)
}

func TestSendsEventsAtEventLevel(t *testing.T) {
	sender := &fakeSender{}
	a := New()
	require.NoError(t, a.Initialize(context.Background(), Config{Enabled: true, Client: sender}))

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a.Log(logrepo.LevelWarn, "slow query", &logrepo.LogContext{Tag: "db", Timestamp: ts})
	a.Log(logrepo.LevelError, "db down", nil)

	require.Len(t, sender.events, 2)
	warn := sender.events[0]
	assert.Equal(t, "db slow query", warn.Title)
	assert.Equal(t, "slow query", warn.Text)
	assert.Equal(t, statsd.Warning, warn.AlertType)
	assert.Equal(t, ts, warn.Timestamp)
	assert.Equal(t, SourceTypeName, warn.SourceTypeName)
	assert.Equal(t, statsd.Error, sender.events[1].AlertType)
}

func TestEventLevelOverride(t *testing.T) {
	sender := &fakeSender{}
	debug := logrepo.LevelDebug
	a := New()
	require.NoError(t, a.Initialize(context.Background(), Config{Enabled: true, Client: sender, EventLevel: &debug}))

	a.Log(logrepo.LevelDebug, "trace", nil)

	require.Len(t, sender.events, 1)
	assert.Equal(t, statsd.Info, sender.events[0].AlertType)
}

func TestEventTextUsesFormattedOutput(t *testing.T) {
	sender := &fakeSender{}
	a := New()
	require.NoError(t, a.Initialize(context.Background(), Config{Enabled: true, Client: sender}))

	long := strings.Repeat("y", MaxEventTextLength+10)
	a.Log(logrepo.LevelError, "boom", &logrepo.LogContext{Metadata: map[string]any{
		logrepo.FormattedOutputKey: logrepo.FormattedOutput{Text: long},
	}})

	require.Len(t, sender.events, 1)
	assert.Len(t, sender.events[0].Text, MaxEventTextLength)
}

func TestMinLevelAndErrors(t *testing.T) {
	var reported []error
	sender := &fakeSender{err: errors.New("socket closed")}
	a := New()
	require.NoError(t, a.Initialize(context.Background(), Config{
		Enabled:  true,
		Client:   sender,
		MinLevel: logrepo.LevelWarn,
		OnError:  func(err error) { reported = append(reported, err) },
	}))

	a.Log(logrepo.LevelInfo, "ignored", nil)
	assert.Empty(t, sender.incrs)

	a.Log(logrepo.LevelError, "counted", nil)
	assert.Len(t, sender.incrs, 1)
	assert.Len(t, reported, 2)
}

func TestUnsupportedClientIsPermanent(t *testing.T) {
	a := New()

	err := a.Initialize(context.Background(), Config{Enabled: true, Client: 42})
	assert.ErrorIs(t, err, ErrUnsupportedClient)

	err = a.Initialize(context.Background(), Config{Enabled: true, Client: &fakeSender{}})
	assert.ErrorIs(t, err, ErrUnsupportedClient)
	assert.False(t, a.IsEnabled())
}

func TestInitializeErrors(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, New().Initialize(ctx, Config{Enabled: true}))
	assert.Error(t, New().Initialize(ctx, "addr"))
	assert.Error(t, New().Initialize(ctx, (*Config)(nil)))
}

func TestDestroyLeavesCallerClientOpen(t *testing.T) {
	sender := &fakeSender{}
	a := New()
	require.NoError(t, a.Initialize(context.Background(), Config{Enabled: true, Client: sender}))

	require.NoError(t, a.Destroy(context.Background()))
	assert.False(t, a.IsEnabled())

	a.Log(logrepo.LevelError, "after destroy", nil)
	assert.Empty(t, sender.incrs)
}

func TestDialedClientSendsDatagrams(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	a := New()
	require.NoError(t, a.Initialize(context.Background(), Config{
		Enabled: true,
		Addr:    conn.LocalAddr().String(),
		Options: []statsd.Option{statsd.WithoutTelemetry()},
	}))

	a.Log(logrepo.LevelError, "disk full", &logrepo.LogContext{Tag: "storage"})
	require.NoError(t, a.Destroy(context.Background()))

	var received strings.Builder
	buf := make([]byte, 65536)
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if strings.Contains(received.String(), DefaultMetric) && strings.Contains(received.String(), "_e{") {
				break
			}
			continue
		}
		received.Write(buf[:n])
	}

	out := received.String()
	assert.Contains(t, out, DefaultMetric+":1|c")
	assert.Contains(t, out, "level:error")
	assert.Contains(t, out, "_e{")
	assert.Contains(t, out, "disk full")
}

func TestTagValue(t *testing.T) {
	assert.Equal(t, "payments", tagValue("[Payments]"))
	assert.Equal(t, "a_b-c.d/e", tagValue("A B-c.d/e"))
}
