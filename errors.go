package logrepo

import (
	"errors"
	"fmt"
	"maps"
)

// Error codes for structured error handling.
// These codes enable programmatic matching with errors.Is and errors.As.
const (
	ErrCodeNilConfig           = "NIL_CONFIG"
	ErrCodeNilAdapter          = "NIL_ADAPTER"
	ErrCodeNilSanitizer        = "NIL_SANITIZER"
	ErrCodeEmptyName           = "EMPTY_NAME"
	ErrCodeEmptyTag            = "EMPTY_TAG"
	ErrCodeAdapterNotFound     = "ADAPTER_NOT_FOUND"
	ErrCodeMaxAdaptersExceeded = "MAX_ADAPTERS_EXCEEDED"
	ErrCodeInvalidLevel        = "INVALID_LEVEL"
	ErrCodeInvalidFormatter    = "INVALID_FORMATTER"
	ErrCodeConfigValidation    = "CONFIG_VALIDATION"
	ErrCodeConfigLoad          = "CONFIG_LOAD"
	ErrCodeAdapterInit         = "ADAPTER_INIT"
	ErrCodeAdapterDestroy      = "ADAPTER_DESTROY"
	ErrCodeAdapterLog          = "ADAPTER_LOG"
)

// RepositoryError is a structured error with a machine-readable code.
//
// Example usage:
//
//	if err := repo.RegisterAdapter(ctx, "", a, nil); err != nil {
//	    var repoErr *logrepo.RepositoryError
//	    if errors.As(err, &repoErr) {
//	        fmt.Println(repoErr.Code)
//	    }
//	    if errors.Is(err, logrepo.ErrEmptyName) {
//	        // handle the missing name
//	    }
//	}
type RepositoryError struct {
	Code    string         // Machine-readable error code (e.g., "NIL_ADAPTER")
	Message string         // Human-readable message
	Cause   error          // Underlying error
	Context map[string]any // Additional context for debugging
}

func (e *RepositoryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *RepositoryError) Unwrap() error {
	return e.Cause
}

var errorCodeToSentinel = map[string]error{
	ErrCodeNilConfig:           ErrNilConfig,
	ErrCodeNilAdapter:          ErrNilAdapter,
	ErrCodeNilSanitizer:        ErrNilSanitizer,
	ErrCodeEmptyName:           ErrEmptyName,
	ErrCodeEmptyTag:            ErrEmptyTag,
	ErrCodeAdapterNotFound:     ErrAdapterNotFound,
	ErrCodeMaxAdaptersExceeded: ErrMaxAdaptersExceeded,
	ErrCodeInvalidLevel:        ErrInvalidLevel,
	ErrCodeInvalidFormatter:    ErrInvalidFormatter,
	ErrCodeConfigValidation:    ErrConfigValidation,
	ErrCodeConfigLoad:          ErrConfigLoad,
	ErrCodeAdapterInit:         ErrAdapterInit,
	ErrCodeAdapterDestroy:      ErrAdapterDestroy,
	ErrCodeAdapterLog:          ErrAdapterLog,
}

// Is matches a RepositoryError against the sentinel for its code.
func (e *RepositoryError) Is(target error) bool {
	if sentinel, ok := errorCodeToSentinel[e.Code]; ok {
		return target == sentinel
	}
	return false
}

// NewError creates a RepositoryError with the given code and message.
func NewError(code, message string) *RepositoryError {
	return &RepositoryError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps cause with a code and message. A nil cause yields nil.
func WrapError(code, message string, cause error) *RepositoryError {
	if cause == nil {
		return nil
	}
	return &RepositoryError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithContext returns a copy of e with key set in its context.
func (e *RepositoryError) WithContext(key string, value any) *RepositoryError {
	if e == nil {
		return nil
	}
	newContext := make(map[string]any, len(e.Context)+1)
	maps.Copy(newContext, e.Context)
	newContext[key] = value
	return &RepositoryError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Context: newContext,
	}
}

var (
	ErrNilConfig           = errors.New("config cannot be nil")
	ErrNilAdapter          = errors.New("adapter cannot be nil")
	ErrNilSanitizer        = errors.New("sanitizer cannot be nil")
	ErrEmptyName           = errors.New("adapter name cannot be empty")
	ErrEmptyTag            = errors.New("sanitizer tag cannot be empty")
	ErrAdapterNotFound     = errors.New("adapter not found")
	ErrMaxAdaptersExceeded = errors.New("maximum adapter count exceeded")
	ErrInvalidLevel        = errors.New("invalid log level")
	ErrInvalidFormatter    = errors.New("invalid formatter")
	ErrConfigValidation    = errors.New("invalid configuration")
	ErrConfigLoad          = errors.New("failed to load configuration")
	ErrAdapterInit         = errors.New("adapter initialization failed")
	ErrAdapterDestroy      = errors.New("adapter teardown failed")
	ErrAdapterLog          = errors.New("adapter log failed")
)

// PanicError converts a recovered panic value into an error.
func PanicError(code, message string, recovered any) *RepositoryError {
	cause, ok := recovered.(error)
	if !ok {
		cause = fmt.Errorf("panic: %v", recovered)
	} else {
		cause = fmt.Errorf("panic: %w", cause)
	}
	return &RepositoryError{Code: code, Message: message, Cause: cause}
}
