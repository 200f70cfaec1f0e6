// Package memory provides an adapter that records events in memory. It is
// meant for tests and can be told to fail at each lifecycle step.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cybergodev/logrepo"
)

// ErrInjected is returned by lifecycle methods configured to fail.
var ErrInjected = errors.New("memory: injected failure")

type Config struct {
	Enabled  bool
	MinLevel logrepo.Level

	FailInitialize bool
	FailDestroy    bool
	PanicOnLog     bool
}

// Entry is one recorded event.
type Entry struct {
	Level   logrepo.Level
	Message string
	Context *logrepo.LogContext
	Time    time.Time
}

type Adapter struct {
	mu      sync.Mutex
	entries []Entry
	cfg     Config

	enabled      atomic.Bool
	initCount    atomic.Int32
	destroyCount atomic.Int32
}

// New returns a disabled adapter. Initialize it, or use NewEnabled.
func New() *Adapter {
	return &Adapter{}
}

// NewEnabled returns an adapter that accepts events without Initialize.
func NewEnabled() *Adapter {
	a := &Adapter{cfg: Config{Enabled: true}}
	a.enabled.Store(true)
	return a
}

// Initialize accepts Config, *Config, or a map with an "enabled" key.
func (a *Adapter) Initialize(_ context.Context, config any) error {
	a.initCount.Add(1)

	cfg, err := configFrom(config)
	if err != nil {
		return err
	}
	if cfg.FailInitialize {
		return fmt.Errorf("initialize: %w", ErrInjected)
	}

	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()
	a.enabled.Store(cfg.Enabled)
	return nil
}

func configFrom(config any) (Config, error) {
	switch c := config.(type) {
	case Config:
		return c, nil
	case *Config:
		if c == nil {
			return Config{}, errors.New("memory: nil config")
		}
		return *c, nil
	case map[string]any:
		enabled, _ := c["enabled"].(bool)
		return Config{Enabled: enabled}, nil
	default:
		return Config{}, fmt.Errorf("memory: unsupported config type %T", config)
	}
}

func (a *Adapter) Log(level logrepo.Level, message string, lc *logrepo.LogContext) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cfg.PanicOnLog {
		panic("memory: induced panic")
	}
	if !a.enabled.Load() || !logrepo.ShouldLog(a.cfg.MinLevel, level) {
		return
	}
	a.entries = append(a.entries, Entry{
		Level:   level,
		Message: message,
		Context: lc,
		Time:    time.Now(),
	})
}

func (a *Adapter) Destroy(context.Context) error {
	a.destroyCount.Add(1)
	a.enabled.Store(false)

	a.mu.Lock()
	fail := a.cfg.FailDestroy
	a.mu.Unlock()
	if fail {
		return fmt.Errorf("destroy: %w", ErrInjected)
	}
	return nil
}

func (a *Adapter) IsEnabled() bool {
	return a.enabled.Load()
}

// Entries returns a copy of everything recorded so far.
func (a *Adapter) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Last returns the most recent entry.
func (a *Adapter) Last() (Entry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) == 0 {
		return Entry{}, false
	}
	return a.entries[len(a.entries)-1], true
}

func (a *Adapter) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

func (a *Adapter) Reset() {
	a.mu.Lock()
	a.entries = nil
	a.mu.Unlock()
}

func (a *Adapter) InitializeCount() int { return int(a.initCount.Load()) }
func (a *Adapter) DestroyCount() int    { return int(a.destroyCount.Load()) }

var _ logrepo.Adapter = (*Adapter)(nil)
