package logrepo

import (
	"maps"
	"time"
)

// LogContext carries the optional per-call details of a log event.
//
// The repository never mutates a LogContext supplied by the caller. When
// sanitization or formatting applies, adapters receive a derived copy.
type LogContext struct {
	// Tag groups related events, for display and for picking a tag-scoped sanitizer.
	Tag string

	File     string
	Function string

	// Data is the primary payload and the main sanitization target.
	Data any

	// Error is an error value or any other object describing a failure.
	// String errors are never sanitized.
	Error any

	// Timestamp overrides the event time. The zero value means now.
	Timestamp time.Time

	Metadata map[string]any

	// Sanitizer, when set, is used for this call only and wins over the
	// tag registry and the repository default.
	Sanitizer Sanitizer

	// SkipSanitization delivers Data, Metadata and Error untouched.
	SkipSanitization bool
}

// Clone returns a shallow copy. Metadata gets a fresh top-level map so that
// keys can be added to the copy without touching the original.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	if lc.Metadata != nil {
		clone.Metadata = maps.Clone(lc.Metadata)
	}
	return &clone
}

// Time returns the event timestamp, falling back to the current time.
func (lc *LogContext) Time() time.Time {
	if lc == nil || lc.Timestamp.IsZero() {
		return time.Now()
	}
	return lc.Timestamp
}

// FormattedOutputFrom returns the pre-rendered output the repository attached
// to lc, if any.
func FormattedOutputFrom(lc *LogContext) (FormattedOutput, bool) {
	if lc == nil || lc.Metadata == nil {
		return FormattedOutput{}, false
	}
	switch out := lc.Metadata[FormattedOutputKey].(type) {
	case FormattedOutput:
		return out, true
	case *FormattedOutput:
		if out != nil {
			return *out, true
		}
	}
	return FormattedOutput{}, false
}

// MetadataWithoutFormatted returns lc.Metadata minus the formatted output
// slot. The result is nil when nothing else remains.
func MetadataWithoutFormatted(lc *LogContext) map[string]any {
	if lc == nil || len(lc.Metadata) == 0 {
		return nil
	}
	if _, ok := lc.Metadata[FormattedOutputKey]; !ok {
		return lc.Metadata
	}
	if len(lc.Metadata) == 1 {
		return nil
	}
	out := make(map[string]any, len(lc.Metadata)-1)
	for k, v := range lc.Metadata {
		if k != FormattedOutputKey {
			out[k] = v
		}
	}
	return out
}
