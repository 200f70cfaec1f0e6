package logrepo

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// SanitizedError is the sanitized form of an error value. It keeps the
// original reachable through Unwrap so errors.Is and errors.As still work.
type SanitizedError struct {
	Name    string         `json:"name"`
	Message string         `json:"message"`
	Trace   string         `json:"stack,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`

	cause error
}

func (e *SanitizedError) Error() string { return e.Message }

func (e *SanitizedError) Unwrap() error { return e.cause }

func (e *SanitizedError) ErrorName() string { return e.Name }

func (e *SanitizedError) Stack() string { return e.Trace }

// StackTrace exposes the innermost github.com/pkg/errors trace of the
// original error, so reporters that read pkg/errors stacks still find it.
func (e *SanitizedError) StackTrace() pkgerrors.StackTrace {
	if st := deepestStack(e.cause); st != nil {
		return st.StackTrace()
	}
	return nil
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// DescribeError splits err into the name, message and stack used by
// formatters and adapters.
//
// The name comes from an ErrorName() method when present, otherwise from the
// concrete type; plain errors.New and fmt.Errorf values are named "Error".
// The stack comes from a Stack() method or from the innermost
// github.com/pkg/errors stack trace in the chain.
func DescribeError(err error) (name, message, stack string) {
	if err == nil {
		return "", "", ""
	}

	if named, ok := err.(interface{ ErrorName() string }); ok {
		name = named.ErrorName()
	} else {
		name = errorTypeName(err)
	}

	message = err.Error()

	if st, ok := err.(interface{ Stack() string }); ok {
		stack = st.Stack()
	} else {
		stack = pkgStack(err)
	}
	return name, message, stack
}

func errorTypeName(err error) string {
	typ := reflect.TypeOf(err)
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	switch typ.PkgPath() {
	case "errors", "fmt", "github.com/pkg/errors":
		return "Error"
	}
	if typ.Name() == "" {
		return "Error"
	}
	return typ.Name()
}

func deepestStack(err error) stackTracer {
	var deepest stackTracer
	for e := err; e != nil; e = errors.Unwrap(e) {
		if st, ok := e.(stackTracer); ok && len(st.StackTrace()) > 0 {
			deepest = st
		}
	}
	return deepest
}

func pkgStack(err error) string {
	deepest := deepestStack(err)
	if deepest == nil {
		return ""
	}
	return strings.TrimPrefix(fmt.Sprintf("%+v", deepest.StackTrace()), "\n")
}
