// Package backend forwards events to an existing structured logger.
//
// Supported loggers are *zap.Logger, *zap.SugaredLogger, zerolog.Logger,
// *zerolog.Logger and *slog.Logger. The logger's own level filtering still
// applies after MinLevel.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cybergodev/logrepo"
)

var ErrUnsupportedLogger = errors.New("backend: unsupported logger")

type kind int

const (
	kindNone kind = iota
	kindZap
	kindZerolog
	kindSlog
	kindUnsupported
)

func (k kind) String() string {
	switch k {
	case kindZap:
		return "zap"
	case kindZerolog:
		return "zerolog"
	case kindSlog:
		return "slog"
	case kindUnsupported:
		return "unsupported"
	default:
		return "none"
	}
}

type Config struct {
	Enabled  bool
	MinLevel logrepo.Level

	Logger any

	// Formatted sends the pre-rendered text as the message instead of the
	// raw message plus fields, when the repository attached one.
	Formatted bool

	OnError func(error)
}

type Adapter struct {
	enabled atomic.Bool

	mu      sync.Mutex
	cfg     Config
	kind    kind
	zap     *zap.Logger
	zerolog *zerolog.Logger
	slog    *slog.Logger
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
			return errors.New("backend: nil config")
		}
		cfg = *c
	default:
		return fmt.Errorf("backend: unsupported config type %T", config)
	}
	if cfg.OnError == nil {
		cfg.OnError = func(err error) {
			fmt.Fprintf(os.Stderr, "logrepo: backend adapter: %v\n", err)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.kind == kindUnsupported {
		return ErrUnsupportedLogger
	}

	switch l := cfg.Logger.(type) {
	case *zap.Logger:
		a.kind, a.zap = kindZap, l
	case *zap.SugaredLogger:
		a.kind, a.zap = kindZap, l.Desugar()
	case zerolog.Logger:
		a.kind, a.zerolog = kindZerolog, &l
	case *zerolog.Logger:
		a.kind, a.zerolog = kindZerolog, l
	case *slog.Logger:
		a.kind, a.slog = kindSlog, l
	case nil:
		return errors.New("backend: Logger is required")
	default:
		a.kind = kindUnsupported
		a.enabled.Store(false)
		return fmt.Errorf("%w: %T", ErrUnsupportedLogger, cfg.Logger)
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
	cfg, k := a.cfg, a.kind
	zl, zr, sl := a.zap, a.zerolog, a.slog
	a.mu.Unlock()

	if !logrepo.ShouldLog(cfg.MinLevel, level) {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			cfg.OnError(fmt.Errorf("backend: recovered panic: %v", r))
		}
	}()

	if cfg.Formatted {
		if out, ok := logrepo.FormattedOutputFrom(lc); ok && out.HasText() {
			message = out.Text
		}
	}

	switch k {
	case kindZap:
		logZap(zl, level, message, lc)
	case kindZerolog:
		logZerolog(zr, level, message, lc)
	case kindSlog:
		logSlog(sl, level, message, lc)
	}
}

func logZap(l *zap.Logger, level logrepo.Level, message string, lc *logrepo.LogContext) {
	ce := l.Check(zapLevel(level), message)
	if ce == nil {
		return
	}
	fields := make([]zap.Field, 0, 6)
	if lc != nil {
		if lc.Tag != "" {
			fields = append(fields, zap.String("tag", lc.Tag))
		}
		if lc.File != "" {
			fields = append(fields, zap.String("file", lc.File))
		}
		if lc.Function != "" {
			fields = append(fields, zap.String("function", lc.Function))
		}
		if lc.Data != nil {
			fields = append(fields, zap.Any("data", lc.Data))
		}
		if meta := logrepo.MetadataWithoutFormatted(lc); meta != nil {
			fields = append(fields, zap.Any("metadata", meta))
		}
		switch e := lc.Error.(type) {
		case nil:
		case error:
			fields = append(fields, zap.Error(e))
		default:
			fields = append(fields, zap.Any("error", e))
		}
	}
	ce.Time = lc.Time()
	ce.Write(fields...)
}

func zapLevel(level logrepo.Level) zapcore.Level {
	switch level {
	case logrepo.LevelDebug:
		return zapcore.DebugLevel
	case logrepo.LevelInfo:
		return zapcore.InfoLevel
	case logrepo.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func logZerolog(l *zerolog.Logger, level logrepo.Level, message string, lc *logrepo.LogContext) {
	ev := l.WithLevel(zerologLevel(level))
	if ev == nil {
		return
	}
	ev = ev.Time("event_time", lc.Time())
	if lc != nil {
		if lc.Tag != "" {
			ev = ev.Str("tag", lc.Tag)
		}
		if lc.File != "" {
			ev = ev.Str("file", lc.File)
		}
		if lc.Function != "" {
			ev = ev.Str("function", lc.Function)
		}
		if lc.Data != nil {
			ev = ev.Interface("data", lc.Data)
		}
		if meta := logrepo.MetadataWithoutFormatted(lc); meta != nil {
			ev = ev.Interface("metadata", meta)
		}
		switch e := lc.Error.(type) {
		case nil:
		case error:
			ev = ev.Err(e)
		default:
			ev = ev.Interface(zerolog.ErrorFieldName, e)
		}
	}
	ev.Msg(message)
}

func zerologLevel(level logrepo.Level) zerolog.Level {
	switch level {
	case logrepo.LevelDebug:
		return zerolog.DebugLevel
	case logrepo.LevelInfo:
		return zerolog.InfoLevel
	case logrepo.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func logSlog(l *slog.Logger, level logrepo.Level, message string, lc *logrepo.LogContext) {
	ctx := context.Background()
	sl := slogLevel(level)
	if !l.Enabled(ctx, sl) {
		return
	}
	attrs := make([]slog.Attr, 0, 6)
	if lc != nil {
		if lc.Tag != "" {
			attrs = append(attrs, slog.String("tag", lc.Tag))
		}
		if lc.File != "" {
			attrs = append(attrs, slog.String("file", lc.File))
		}
		if lc.Function != "" {
			attrs = append(attrs, slog.String("function", lc.Function))
		}
		if lc.Data != nil {
			attrs = append(attrs, slog.Any("data", lc.Data))
		}
		if meta := logrepo.MetadataWithoutFormatted(lc); meta != nil {
			attrs = append(attrs, slog.Any("metadata", meta))
		}
		if lc.Error != nil {
			attrs = append(attrs, slog.Any("error", lc.Error))
		}
	}
	l.LogAttrs(ctx, sl, message, attrs...)
}

func slogLevel(level logrepo.Level) slog.Level {
	switch level {
	case logrepo.LevelDebug:
		return slog.LevelDebug
	case logrepo.LevelInfo:
		return slog.LevelInfo
	case logrepo.LevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Destroy syncs a zap logger. Other loggers have nothing to release.
func (a *Adapter) Destroy(context.Context) error {
	a.enabled.Store(false)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.kind == kindZap && a.zap != nil {
		if err := a.zap.Sync(); err != nil && !isStdioSyncError(err) {
			return fmt.Errorf("backend: sync: %w", err)
		}
	}
	return nil
}

// Syncing a terminal returns EINVAL or ENOTTY on most platforms.
func isStdioSyncError(err error) bool {
	var pathErr *os.PathError
	if !errors.As(err, &pathErr) {
		return false
	}
	return pathErr.Path == os.Stdout.Name() || pathErr.Path == os.Stderr.Name()
}

func (a *Adapter) IsEnabled() bool {
	return a.enabled.Load()
}

// Kind names the detected logger: "zap", "zerolog", "slog", "unsupported" or "none".
func (a *Adapter) Kind() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.kind.String()
}

var _ logrepo.Adapter = (*Adapter)(nil)
