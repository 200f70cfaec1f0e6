package logrepo

import (
	"strconv"

	"github.com/cybergodev/logrepo/internal"
)

// Level is the severity of a log event. Levels order debug < info < warn < error.
type Level = internal.LogLevel

const (
	LevelDebug = internal.LevelDebug
	LevelInfo  = internal.LevelInfo
	LevelWarn  = internal.LevelWarn
	LevelError = internal.LevelError
)

// ParseLevel converts a level name into a Level. It accepts "warning" as an
// alias for warn and ignores case and surrounding whitespace.
func ParseLevel(s string) (Level, error) {
	level, ok := internal.ParseLevel(s)
	if !ok {
		return LevelDebug, WrapError(ErrCodeInvalidLevel, "unknown level "+strconv.Quote(s), internal.ErrUnknownLevel)
	}
	return level, nil
}
