package internal

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

const (
	FilePermissions = 0600
	RetryAttempts   = 3
	RetryDelay      = 10 * time.Millisecond
)

// MaxStringifyDepth bounds the cycle check run before encoding.
const MaxStringifyDepth = 64

// Stringify encodes v as compact JSON. Cyclic values and encoder panics are
// reported as errors instead of overflowing the stack.
func Stringify(v any) (s string, err error) {
	if HasCycle(v, MaxStringifyDepth) {
		return "", ErrCyclicValue
	}

	defer func() {
		if r := recover(); r != nil {
			s = ""
			err = fmt.Errorf("json encode panic: %v", r)
		}
	}()

	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// StringifyOrDescribe falls back to a bracketed description when v cannot be encoded.
func StringifyOrDescribe(v any) string {
	s, err := Stringify(v)
	if err == nil {
		return s
	}
	if err == ErrCyclicValue {
		return fmt.Sprintf("[Unserializable: %T]", v)
	}
	return fmt.Sprintf("[Unserializable: %v]", v)
}

// MarshalLine encodes v followed by a newline, for line-oriented sinks.
func MarshalLine(v any) ([]byte, error) {
	if HasCycle(v, MaxStringifyDepth) {
		return nil, ErrCyclicValue
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
