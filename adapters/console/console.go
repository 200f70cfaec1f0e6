// Package console writes events to a terminal or any io.Writer, one line per
// event, with the level colored.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fatih/color"

	"github.com/cybergodev/logrepo"
	"github.com/cybergodev/logrepo/internal"
)

type ColorMode int

const (
	// ColorAuto colors output when stdout is a terminal.
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

type Config struct {
	Enabled  bool
	MinLevel logrepo.Level

	// Writer defaults to os.Stdout.
	Writer io.Writer
	Color  ColorMode

	// IgnoreFormatted renders every event locally even when the repository
	// attached pre-formatted text.
	IgnoreFormatted bool

	// Provenance fills in file and function when the event carries neither.
	Provenance logrepo.ProvenanceFunc

	// OnError receives write failures. Defaults to a line on stderr.
	OnError func(error)
}

type Adapter struct {
	enabled atomic.Bool

	mu     sync.Mutex
	cfg    Config
	text   *logrepo.TextFormatter
	colors map[logrepo.Level]*color.Color
}

func New() *Adapter {
	return &Adapter{text: logrepo.NewTextFormatter()}
}

func (a *Adapter) Initialize(_ context.Context, config any) error {
	var cfg Config
	switch c := config.(type) {
	case Config:
		cfg = c
	case *Config:
		if c == nil {
			return errors.New("console: nil config")
		}
		cfg = *c
	default:
		return fmt.Errorf("console: unsupported config type %T", config)
	}

	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.OnError == nil {
		cfg.OnError = func(err error) {
			fmt.Fprintf(os.Stderr, "logrepo: console adapter: %v\n", err)
		}
	}

	a.mu.Lock()
	a.cfg = cfg
	a.colors = levelColors(cfg.Color)
	a.mu.Unlock()

	a.enabled.Store(cfg.Enabled)
	return nil
}

func levelColors(mode ColorMode) map[logrepo.Level]*color.Color {
	colors := map[logrepo.Level]*color.Color{
		logrepo.LevelDebug: color.New(color.FgHiBlack),
		logrepo.LevelInfo:  color.New(color.FgCyan),
		logrepo.LevelWarn:  color.New(color.FgYellow),
		logrepo.LevelError: color.New(color.FgRed, color.Bold),
	}
	for _, c := range colors {
		switch mode {
		case ColorAlways:
			c.EnableColor()
		case ColorNever:
			c.DisableColor()
		}
	}
	return colors
}

func (a *Adapter) Log(level logrepo.Level, message string, lc *logrepo.LogContext) {
	if !a.enabled.Load() {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !logrepo.ShouldLog(a.cfg.MinLevel, level) {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			a.cfg.OnError(fmt.Errorf("console: recovered panic: %v", r))
		}
	}()

	line := a.render(level, message, lc)
	if _, err := io.WriteString(a.cfg.Writer, line); err != nil {
		a.cfg.OnError(fmt.Errorf("console: write: %w", err))
	}
}

func (a *Adapter) render(level logrepo.Level, message string, lc *logrepo.LogContext) string {
	var text string
	if out, ok := logrepo.FormattedOutputFrom(lc); ok && out.HasText() && !a.cfg.IgnoreFormatted {
		text = out.Text
	} else {
		text = a.text.Format(level, message, a.withProvenance(lc)).Text
	}
	text = internal.EscapeControl(text)

	// Color only the leading [LEVEL] block.
	if c := a.colors[level]; c != nil {
		if end := strings.IndexByte(text, ']'); end > 0 && text[0] == '[' {
			text = c.Sprint(text[:end+1]) + text[end+1:]
		}
	}
	return text + "\n"
}

func (a *Adapter) withProvenance(lc *logrepo.LogContext) *logrepo.LogContext {
	if a.cfg.Provenance == nil || (lc != nil && (lc.File != "" || lc.Function != "")) {
		return lc
	}
	file, function := a.cfg.Provenance()
	if file == "" && function == "" {
		return lc
	}
	var out logrepo.LogContext
	if lc != nil {
		out = *lc
	}
	out.File, out.Function = file, function
	return &out
}

func (a *Adapter) Destroy(context.Context) error {
	a.enabled.Store(false)

	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.cfg.Writer.(interface{ Sync() error }); ok && a.cfg.Writer != os.Stdout && a.cfg.Writer != os.Stderr {
		return s.Sync()
	}
	return nil
}

func (a *Adapter) IsEnabled() bool {
	return a.enabled.Load()
}

var _ logrepo.Adapter = (*Adapter)(nil)
