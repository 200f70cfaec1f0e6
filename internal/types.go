package internal

import "strings"

type LogLevel int8

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the lower-case wire name used in structured output.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Upper returns the upper-case label used by the text formatter.
func (l LogLevel) Upper() string {
	return strings.ToUpper(l.String())
}

func (l LogLevel) IsValid() bool {
	return l >= LevelDebug && l <= LevelError
}

// MarshalText keeps levels readable in JSON and YAML.
func (l LogLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *LogLevel) UnmarshalText(text []byte) error {
	parsed, ok := ParseLevel(string(text))
	if !ok {
		return ErrUnknownLevel
	}
	*l = parsed
	return nil
}

// ParseLevel accepts the four level names case-insensitively, plus "warning".
func ParseLevel(s string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelDebug, false
	}
}
