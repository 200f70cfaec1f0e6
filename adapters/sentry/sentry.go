// Package sentry forwards events to Sentry.
//
// The adapter accepts several client shapes and picks one at Initialize:
// a *sentry.Hub, a *sentry.Client, anything implementing Capturer, or a DSN
// from which a client is built. Any other client disables the adapter for
// good.
package sentry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/cybergodev/logrepo"
)

const DefaultFlushTimeout = 2 * time.Second

// ErrUnsupportedClient is returned by Initialize for client shapes the
// adapter does not recognize.
var ErrUnsupportedClient = errors.New("sentry: unsupported client")

// Capturer is the smallest client shape the adapter can drive. It gets no
// scope, so tags and data travel inside the message.
type Capturer interface {
	CaptureMessage(message string) *sentry.EventID
	CaptureException(exception error) *sentry.EventID
}

type flusher interface {
	Flush(timeout time.Duration) bool
}

type profile int

const (
	profileNone profile = iota
	profileHub
	profileCapturer
	profileUnsupported
)

func (p profile) String() string {
	switch p {
	case profileHub:
		return "hub"
	case profileCapturer:
		return "capturer"
	case profileUnsupported:
		return "unsupported"
	default:
		return "none"
	}
}

type Config struct {
	Enabled bool

	// MinLevel is the lowest level sent as an event. Lower levels become
	// breadcrumbs when Breadcrumbs is set and the client supports them.
	MinLevel    logrepo.Level
	Breadcrumbs bool

	// Client is a *sentry.Hub, a *sentry.Client or a Capturer. When nil,
	// a client is built from DSN and ClientOptions.
	Client        any
	DSN           string
	ClientOptions sentry.ClientOptions

	FlushTimeout time.Duration
	OnError      func(error)
}

type Adapter struct {
	enabled atomic.Bool

	mu       sync.Mutex
	cfg      Config
	profile  profile
	hub      *sentry.Hub
	capturer Capturer
	owned    bool
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
			return errors.New("sentry: nil config")
		}
		cfg = *c
	default:
		return fmt.Errorf("sentry: unsupported config type %T", config)
	}

	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = DefaultFlushTimeout
	}
	if cfg.OnError == nil {
		cfg.OnError = func(err error) {
			fmt.Fprintf(os.Stderr, "logrepo: sentry adapter: %v\n", err)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.profile == profileUnsupported {
		return ErrUnsupportedClient
	}

	a.cfg = cfg
	if err := a.detect(cfg); err != nil {
		a.enabled.Store(false)
		return err
	}
	a.enabled.Store(cfg.Enabled)
	return nil
}

// detect resolves the client shape once. An unsupported shape is sticky.
func (a *Adapter) detect(cfg Config) error {
	switch c := cfg.Client.(type) {
	case *sentry.Hub:
		a.profile, a.hub = profileHub, c
	case *sentry.Client:
		a.profile, a.hub = profileHub, sentry.NewHub(c, sentry.NewScope())
	case Capturer:
		a.profile, a.capturer = profileCapturer, c
	case nil:
		if cfg.DSN == "" {
			return errors.New("sentry: either Client or DSN is required")
		}
		opts := cfg.ClientOptions
		opts.Dsn = cfg.DSN
		client, err := sentry.NewClient(opts)
		if err != nil {
			return fmt.Errorf("sentry: create client: %w", err)
		}
		a.profile, a.hub, a.owned = profileHub, sentry.NewHub(client, sentry.NewScope()), true
	default:
		a.profile = profileUnsupported
		return fmt.Errorf("%w: %T", ErrUnsupportedClient, cfg.Client)
	}
	return nil
}

func (a *Adapter) Log(level logrepo.Level, message string, lc *logrepo.LogContext) {
	if !a.enabled.Load() {
		return
	}

	a.mu.Lock()
	cfg, prof, hub, capturer := a.cfg, a.profile, a.hub, a.capturer
	a.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			cfg.OnError(fmt.Errorf("sentry: recovered panic: %v", r))
		}
	}()

	if !logrepo.ShouldLog(cfg.MinLevel, level) {
		if cfg.Breadcrumbs && prof == profileHub {
			hub.AddBreadcrumb(breadcrumb(level, message, lc), nil)
		}
		return
	}

	switch prof {
	case profileHub:
		captureWithScope(hub, level, message, lc)
	case profileCapturer:
		captureFlat(capturer, level, message, lc)
	}
}

func captureWithScope(hub *sentry.Hub, level logrepo.Level, message string, lc *logrepo.LogContext) {
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentryLevel(level))
		scope.SetContext("log", sentry.Context{"message": message, "level": level.String()})

		if lc != nil {
			if lc.Tag != "" {
				scope.SetTag("tag", lc.Tag)
			}
			if lc.File != "" {
				scope.SetTag("file", lc.File)
			}
			if lc.Function != "" {
				scope.SetTag("function", lc.Function)
			}
			if lc.Data != nil {
				scope.SetContext("data", asContext(lc.Data))
			}
			if meta := logrepo.MetadataWithoutFormatted(lc); len(meta) > 0 {
				scope.SetContext("metadata", sentry.Context(meta))
			}
		}

		if err := errorOf(lc); err != nil {
			hub.CaptureException(err)
			return
		}
		hub.CaptureMessage(message)
	})
}

func captureFlat(c Capturer, level logrepo.Level, message string, lc *logrepo.LogContext) {
	if err := errorOf(lc); err != nil {
		c.CaptureException(fmt.Errorf("%s: %w", message, err))
		return
	}
	text := "[" + level.String() + "] " + message
	if lc != nil && lc.Tag != "" {
		text = lc.Tag + " " + text
	}
	c.CaptureMessage(text)
}

func breadcrumb(level logrepo.Level, message string, lc *logrepo.LogContext) *sentry.Breadcrumb {
	b := &sentry.Breadcrumb{
		Type:      "default",
		Category:  "log",
		Message:   message,
		Level:     sentryLevel(level),
		Timestamp: lc.Time(),
	}
	if lc != nil && lc.Tag != "" {
		b.Category = lc.Tag
	}
	return b
}

func errorOf(lc *logrepo.LogContext) error {
	if lc == nil {
		return nil
	}
	err, _ := lc.Error.(error)
	return err
}

func asContext(v any) sentry.Context {
	if m, ok := v.(map[string]any); ok {
		return sentry.Context(m)
	}
	return sentry.Context{"value": v}
}

func sentryLevel(level logrepo.Level) sentry.Level {
	switch level {
	case logrepo.LevelDebug:
		return sentry.LevelDebug
	case logrepo.LevelInfo:
		return sentry.LevelInfo
	case logrepo.LevelWarn:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}

// Destroy flushes pending events. A client built from a DSN is also closed
// to new events.
func (a *Adapter) Destroy(context.Context) error {
	a.enabled.Store(false)

	a.mu.Lock()
	defer a.mu.Unlock()

	var f flusher
	switch a.profile {
	case profileHub:
		f = a.hub
	case profileCapturer:
		f, _ = a.capturer.(flusher)
	}
	if f != nil && !f.Flush(a.cfg.FlushTimeout) {
		return fmt.Errorf("sentry: flush timed out after %s", a.cfg.FlushTimeout)
	}
	if a.owned {
		a.hub = nil
		a.profile = profileNone
	}
	return nil
}

func (a *Adapter) IsEnabled() bool {
	return a.enabled.Load()
}

// Profile names the detected client shape: "hub", "capturer", "unsupported" or "none".
func (a *Adapter) Profile() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.profile.String()
}

var _ logrepo.Adapter = (*Adapter)(nil)
