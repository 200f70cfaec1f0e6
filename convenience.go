package logrepo

import (
	"context"
	"fmt"
)

func firstContext(lcs []*LogContext) *LogContext {
	if len(lcs) == 0 {
		return nil
	}
	return lcs[0]
}

// Convenience logging methods. Only the first LogContext is used.
func (r *Repository) Debug(message string, lc ...*LogContext) {
	r.Log(LevelDebug, message, firstContext(lc))
}
func (r *Repository) Info(message string, lc ...*LogContext) {
	r.Log(LevelInfo, message, firstContext(lc))
}
func (r *Repository) Warn(message string, lc ...*LogContext) {
	r.Log(LevelWarn, message, firstContext(lc))
}
func (r *Repository) Error(message string, lc ...*LogContext) {
	r.Log(LevelError, message, firstContext(lc))
}

// Logf formats the message only when the repository is enabled.
func (r *Repository) Logf(level Level, format string, args ...any) {
	if !r.enabled.Load() {
		return
	}
	r.Log(level, fmt.Sprintf(format, args...), nil)
}

func (r *Repository) Debugf(format string, args ...any) { r.Logf(LevelDebug, format, args...) }
func (r *Repository) Infof(format string, args ...any)  { r.Logf(LevelInfo, format, args...) }
func (r *Repository) Warnf(format string, args ...any)  { r.Logf(LevelWarn, format, args...) }
func (r *Repository) Errorf(format string, args ...any) { r.Logf(LevelError, format, args...) }

// Package-level functions operate on GetInstance(nil).

func Log(level Level, message string, lc *LogContext) { GetInstance(nil).Log(level, message, lc) }

func Debug(message string, lc ...*LogContext) { GetInstance(nil).Debug(message, lc...) }
func Info(message string, lc ...*LogContext)  { GetInstance(nil).Info(message, lc...) }
func Warn(message string, lc ...*LogContext)  { GetInstance(nil).Warn(message, lc...) }
func Error(message string, lc ...*LogContext) { GetInstance(nil).Error(message, lc...) }

func Debugf(format string, args ...any) { GetInstance(nil).Debugf(format, args...) }
func Infof(format string, args ...any)  { GetInstance(nil).Infof(format, args...) }
func Warnf(format string, args ...any)  { GetInstance(nil).Warnf(format, args...) }
func Errorf(format string, args ...any) { GetInstance(nil).Errorf(format, args...) }

func Enable()  { GetInstance(nil).Enable() }
func Disable() { GetInstance(nil).Disable() }

// RegisterAdapter registers an adapter with the process-wide repository.
func RegisterAdapter(ctx context.Context, name string, adapter Adapter, config any) error {
	return GetInstance(nil).RegisterAdapter(ctx, name, adapter, config)
}

// UnregisterAdapter removes an adapter from the process-wide repository.
func UnregisterAdapter(ctx context.Context, name string) bool {
	return GetInstance(nil).UnregisterAdapter(ctx, name)
}

// RegisterSanitizer registers a tag-scoped sanitizer with the process-wide repository.
func RegisterSanitizer(tag string, s Sanitizer) error {
	return GetInstance(nil).RegisterSanitizer(tag, s)
}
