package logrepo

import (
	"context"
	"fmt"
	"os"

	"github.com/cybergodev/logrepo/internal"
)

// Adapter is a log destination. Adapters are created and owned by the
// caller; the repository only drives their lifecycle.
//
// Log must return promptly and must not panic. Failures inside Log go to the
// adapter's own side channel and never to the caller. The repository still
// recovers panics from every adapter method.
type Adapter interface {
	// Initialize prepares the adapter. config is adapter specific and passed
	// through untouched.
	Initialize(ctx context.Context, config any) error

	Log(level Level, message string, lc *LogContext)

	// Destroy releases whatever Initialize acquired.
	Destroy(ctx context.Context) error

	// IsEnabled reports whether the adapter wants events. The repository
	// checks it once, after Initialize.
	IsEnabled() bool
}

// WarningHandler receives diagnostics from the repository itself: failed
// adapter lifecycle calls, panics, deprecated configuration. It never routes
// through the logging pipeline.
type WarningHandler func(message string, err error)

// DefaultWarningHandler writes warnings to stderr.
func DefaultWarningHandler(message string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "logrepo: %s: %v\n", message, err)
		return
	}
	fmt.Fprintf(os.Stderr, "logrepo: %s\n", message)
}

// ProvenanceFunc reports where a log call came from. Adapters that show call
// sites accept one so hosts can plug in their own attribution.
type ProvenanceFunc func() (file, function string)

const modulePath = "github.com/cybergodev/logrepo"

// RuntimeProvenance walks the goroutine stack and reports the first frame
// outside this module. It is best effort and returns empty strings when no
// such frame exists.
func RuntimeProvenance(fullPath bool) ProvenanceFunc {
	return func() (string, string) {
		file, function, ok := internal.ExternalCaller(modulePath, fullPath)
		if !ok {
			return "", ""
		}
		return file, function
	}
}

// ShouldLog is the level filter shared by the bundled adapters.
func ShouldLog(minLevel, level Level) bool {
	return level >= minLevel
}
