package internal

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

const maxCallerFrames = 32

// ExternalCaller walks the stack and returns the first frame that is not part
// of a package under modulePrefix. Test files inside the module count as
// external so that tests observe their own call sites.
func ExternalCaller(modulePrefix string, fullPath bool) (file, function string, ok bool) {
	pcs := make([]uintptr, maxCallerFrames)
	n := runtime.Callers(2, pcs)
	if n == 0 {
		return "", "", false
	}

	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !isInternalFrame(frame, modulePrefix) {
			return formatFile(frame.File, frame.Line, fullPath), shortFunction(frame.Function), true
		}
		if !more {
			break
		}
	}
	return "", "", false
}

func isInternalFrame(frame runtime.Frame, modulePrefix string) bool {
	if strings.HasPrefix(frame.Function, "runtime.") {
		return true
	}
	if !strings.HasPrefix(frame.Function, modulePrefix) {
		return false
	}
	return !strings.HasSuffix(frame.File, "_test.go")
}

func formatFile(file string, line int, fullPath bool) string {
	if !fullPath {
		file = filepath.Base(file)
	}

	var sb strings.Builder
	sb.Grow(len(file) + 11)
	sb.WriteString(file)
	sb.WriteByte(':')
	sb.WriteString(strconv.FormatInt(int64(line), 10))
	return sb.String()
}

// shortFunction trims the import path, keeping "pkg.Func" or "pkg.(*T).Method".
func shortFunction(fn string) string {
	if idx := strings.LastIndex(fn, "/"); idx >= 0 {
		fn = fn[idx+1:]
	}
	return fn
}
