// Package datadog turns log events into DogStatsD metrics and events.
//
// Every delivered event increments a counter tagged with its level and tag.
// Events at or above EventLevel are also sent as Datadog events.
package datadog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/DataDog/datadog-go/v5/statsd"

	"github.com/cybergodev/logrepo"
)

const (
	DefaultMetric      = "log.events"
	DefaultSampleRate  = 1.0
	MaxEventTextLength = 4000
	SourceTypeName     = "logrepo"
)

var ErrUnsupportedClient = errors.New("datadog: unsupported client")

// EventSender is the smallest client shape the adapter can drive. Both
// *statsd.Client and statsd.ClientInterface satisfy it.
type EventSender interface {
	Event(e *statsd.Event) error
	Incr(name string, tags []string, rate float64) error
}

type Config struct {
	Enabled  bool
	MinLevel logrepo.Level

	// Client is a *statsd.Client, a statsd.ClientInterface or an
	// EventSender. When nil, a client is dialed at Addr.
	Client  any
	Addr    string
	Options []statsd.Option

	Metric     string
	SampleRate float64
	Tags       []string

	// EventLevel is the lowest level also sent as a Datadog event. Nil
	// means warn.
	EventLevel *logrepo.Level

	OnError func(error)
}

type Adapter struct {
	enabled atomic.Bool

	mu     sync.Mutex
	cfg    Config
	sender EventSender
	closer interface{ Close() error }
	sticky bool
}

func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Initialize(_ context.Context, config any) error {
	var cfg Config
	switch c := config.(type) {
	case Config:
		cfg = c
	case *Config:
		if c == nil {
			return errors.New("datadog: nil config")
		}
		cfg = *c
	default:
		return fmt.Errorf("datadog: unsupported config type %T", config)
	}

	if cfg.Metric == "" {
		cfg.Metric = DefaultMetric
	}
	if cfg.SampleRate <= 0 || cfg.SampleRate > 1 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.EventLevel == nil {
		warn := logrepo.LevelWarn
		cfg.EventLevel = &warn
	}
	if cfg.OnError == nil {
		cfg.OnError = func(err error) {
			fmt.Fprintf(os.Stderr, "logrepo: datadog adapter: %v\n", err)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sticky {
		return ErrUnsupportedClient
	}

	switch c := cfg.Client.(type) {
	case nil:
		if cfg.Addr == "" {
			return errors.New("datadog: either Client or Addr is required")
		}
		client, err := statsd.New(cfg.Addr, cfg.Options...)
		if err != nil {
			return fmt.Errorf("datadog: dial %s: %w", cfg.Addr, err)
		}
		a.sender, a.closer = client, client
	case statsd.ClientInterface:
		a.sender = c
	case EventSender:
		a.sender = c
	default:
		a.sticky = true
		a.enabled.Store(false)
		return fmt.Errorf("%w: %T", ErrUnsupportedClient, cfg.Client)
	}

	a.cfg = cfg
	a.enabled.Store(cfg.Enabled)
	return nil
}

func (a *Adapter) Log(level logrepo.Level, message string, lc *logrepo.LogContext) {
	if !a.enabled.Load() {
		return
	}

	a.mu.Lock()
	cfg, sender := a.cfg, a.sender
	a.mu.Unlock()

	if sender == nil || !logrepo.ShouldLog(cfg.MinLevel, level) {
		return
	}

	tags := eventTags(cfg.Tags, level, lc)
	if err := sender.Incr(cfg.Metric, tags, cfg.SampleRate); err != nil {
		cfg.OnError(fmt.Errorf("datadog: incr %s: %w", cfg.Metric, err))
	}

	if level < *cfg.EventLevel {
		return
	}
	if err := sender.Event(buildEvent(level, message, lc, tags)); err != nil {
		cfg.OnError(fmt.Errorf("datadog: event: %w", err))
	}
}

func eventTags(base []string, level logrepo.Level, lc *logrepo.LogContext) []string {
	tags := make([]string, 0, len(base)+2)
	tags = append(tags, base...)
	tags = append(tags, "level:"+level.String())
	if lc != nil && lc.Tag != "" {
		tags = append(tags, "tag:"+tagValue(lc.Tag))
	}
	return tags
}

// tagValue keeps tags within the DogStatsD charset.
func tagValue(s string) string {
	s = strings.Trim(strings.ToLower(s), "[] ")
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-', r == '.', r == '/':
			return r
		default:
			return '_'
		}
	}, s)
}

func buildEvent(level logrepo.Level, message string, lc *logrepo.LogContext, tags []string) *statsd.Event {
	text := message
	if out, ok := logrepo.FormattedOutputFrom(lc); ok && out.HasText() {
		text = out.Text
	}
	if len(text) > MaxEventTextLength {
		text = text[:MaxEventTextLength]
	}

	title := message
	if lc != nil && lc.Tag != "" {
		title = lc.Tag + " " + message
	}

	e := statsd.NewEvent(title, text)
	e.Timestamp = lc.Time()
	e.AlertType = alertType(level)
	e.SourceTypeName = SourceTypeName
	e.Tags = tags
	return e
}

func alertType(level logrepo.Level) statsd.EventAlertType {
	switch {
	case level >= logrepo.LevelError:
		return statsd.Error
	case level == logrepo.LevelWarn:
		return statsd.Warning
	default:
		return statsd.Info
	}
}

// Destroy closes a client the adapter dialed itself. Caller-supplied clients
// are left open.
func (a *Adapter) Destroy(context.Context) error {
	a.enabled.Store(false)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer, a.sender = nil, nil
	if err != nil {
		return fmt.Errorf("datadog: close: %w", err)
	}
	return nil
}

func (a *Adapter) IsEnabled() bool {
	return a.enabled.Load()
}

var _ logrepo.Adapter = (*Adapter)(nil)
