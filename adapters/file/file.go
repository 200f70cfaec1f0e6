// Package file appends events to a local file as JSON lines, with size based
// rotation, backup pruning and optional gzip compression of backups.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cybergodev/logrepo"
	"github.com/cybergodev/logrepo/internal"
)

type Config struct {
	Enabled  bool
	MinLevel logrepo.Level

	Path       string
	MaxSizeMB  int
	MaxAge     time.Duration
	MaxBackups int
	Compress   bool

	// BufferSizeKB enables write buffering when positive. Buffered lines
	// are flushed every 100ms and on Destroy.
	BufferSizeKB int

	// EventIDs adds a random "event_id" to every line.
	EventIDs bool

	OnError func(error)
}

type Adapter struct {
	enabled atomic.Bool

	mu   sync.Mutex
	cfg  Config
	out  io.WriteCloser
	json *logrepo.JSONFormatter
}

func New() *Adapter {
	return &Adapter{json: logrepo.NewJSONFormatter()}
}

func (a *Adapter) Initialize(_ context.Context, config any) error {
	var cfg Config
	switch c := config.(type) {
	case Config:
		cfg = c
	case *Config:
		if c == nil {
			return errors.New("file: nil config")
		}
		cfg = *c
	default:
		return fmt.Errorf("file: unsupported config type %T", config)
	}

	if cfg.OnError == nil {
		cfg.OnError = func(err error) {
			fmt.Fprintf(os.Stderr, "logrepo: file adapter: %v\n", err)
		}
	}
	if err := normalizeRotation(&cfg); err != nil {
		return err
	}

	if !cfg.Enabled {
		a.mu.Lock()
		a.cfg = cfg
		a.mu.Unlock()
		return nil
	}

	rf, err := openRotatingFile(cfg)
	if err != nil {
		return err
	}
	var out io.WriteCloser = rf
	if cfg.BufferSizeKB > 0 {
		out = newBufferedWriter(rf, cfg.BufferSizeKB, cfg.OnError)
	}

	a.mu.Lock()
	prev := a.out
	a.cfg = cfg
	a.out = out
	a.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	a.enabled.Store(true)
	return nil
}

func (a *Adapter) Log(level logrepo.Level, message string, lc *logrepo.LogContext) {
	if !a.enabled.Load() {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.out == nil || !logrepo.ShouldLog(a.cfg.MinLevel, level) {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			a.cfg.OnError(fmt.Errorf("file: recovered panic: %v", r))
		}
	}()

	line, err := internal.MarshalLine(a.record(level, message, lc))
	if err != nil {
		a.cfg.OnError(fmt.Errorf("file: encode: %w", err))
		return
	}
	if _, err := a.out.Write(line); err != nil {
		a.cfg.OnError(fmt.Errorf("file: %w", err))
	}
}

// record reuses the repository's JSON rendering when present. The shared
// map is copied before adding fields.
func (a *Adapter) record(level logrepo.Level, message string, lc *logrepo.LogContext) map[string]any {
	var fields map[string]any
	if out, ok := logrepo.FormattedOutputFrom(lc); ok && out.HasJSON() {
		fields = out.JSON
	} else {
		fields = a.json.Format(level, message, lc).JSON
	}

	if !a.cfg.EventIDs {
		return fields
	}
	record := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		record[k] = v
	}
	record["event_id"] = uuid.NewString()
	return record
}

// Path returns the cleaned absolute path being written, or "" before Initialize.
func (a *Adapter) Path() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rf, ok := a.out.(*rotatingFile); ok {
		return rf.path
	}
	if bw, ok := a.out.(*bufferedWriter); ok {
		if rf, ok := bw.target.(*rotatingFile); ok {
			return rf.path
		}
	}
	return ""
}

func (a *Adapter) Destroy(context.Context) error {
	a.enabled.Store(false)

	a.mu.Lock()
	out := a.out
	a.out = nil
	a.mu.Unlock()

	if out == nil {
		return nil
	}
	return out.Close()
}

func (a *Adapter) IsEnabled() bool {
	return a.enabled.Load()
}

var _ logrepo.Adapter = (*Adapter)(nil)
