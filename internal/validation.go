package internal

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

const MaxPathLength = 4096

var (
	ErrEmptyPath           = errors.New("file path cannot be empty")
	ErrNullByte            = errors.New("file path contains null byte")
	ErrPathTooLong         = errors.New("file path too long")
	ErrPathTraversal       = errors.New("path traversal detected")
	ErrInvalidPath         = errors.New("invalid file path")
	ErrOverlongEncoding    = errors.New("UTF-8 overlong encoding detected")
	ErrReservedName        = errors.New("reserved device name")
	ErrAlternateDataStream = errors.New("alternate data stream not allowed")
)

var reservedDeviceNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {},
	"COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {},
	"LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
	"CLOCK$": {}, "CONFIG$": {}, "KEYBD$": {}, "SCREEN$": {},
}

// pathChecks run in order against the raw path.
var pathChecks = []func(string) error{
	func(p string) error {
		if p == "" {
			return ErrEmptyPath
		}
		return nil
	},
	func(p string) error {
		if strings.IndexByte(p, 0) >= 0 {
			return ErrNullByte
		}
		return nil
	},
	func(p string) error {
		if hasOverlongUTF8(p) {
			return ErrOverlongEncoding
		}
		return nil
	},
	checkStreamSuffix,
	checkDeviceName,
	func(p string) error {
		if len(p) > MaxPathLength {
			return fmt.Errorf("%w (max %d characters)", ErrPathTooLong, MaxPathLength)
		}
		return nil
	},
	func(p string) error {
		if hasTraversal(p) {
			return ErrPathTraversal
		}
		return nil
	},
}

// CleanLogPath validates a log file destination and returns its cleaned
// absolute form. Link checks happen later in OpenFile.
func CleanLogPath(path string) (string, error) {
	for _, check := range pathChecks {
		if err := check(path); err != nil {
			return "", err
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	clean := filepath.Clean(abs)
	if len(clean) > MaxPathLength {
		return "", fmt.Errorf("%w (cleaned path: max %d characters)", ErrPathTooLong, MaxPathLength)
	}

	// Device namespace prefixes must come from the caller, not from cleaning.
	if isDeviceNamespace(clean) && !isDeviceNamespace(path) {
		return "", ErrPathTraversal
	}
	return clean, nil
}

func isDeviceNamespace(p string) bool {
	return strings.HasPrefix(p, `\\?\`) || strings.HasPrefix(p, `\\.\`)
}

// hasOverlongUTF8 finds non-shortest encodings, which can smuggle '.' or '/'
// past byte-level checks.
func hasOverlongUTF8(s string) bool {
	for i := 0; i < len(s); i++ {
		switch b := s[i]; {
		case (b == 0xC0 || b == 0xC1) && i+1 < len(s):
			if isContinuation(s[i+1]) {
				return true
			}
		case b == 0xE0 && i+2 < len(s):
			if s[i+1] >= 0x80 && s[i+1] <= 0x9F && isContinuation(s[i+2]) {
				return true
			}
		case b == 0xF0 && i+3 < len(s):
			if s[i+1] >= 0x80 && s[i+1] <= 0x8F && isContinuation(s[i+2]) && isContinuation(s[i+3]) {
				return true
			}
		}
	}
	return false
}

func isContinuation(b byte) bool { return b&0xC0 == 0x80 }

// hasTraversal checks the raw path and up to three URL-decoded layers.
func hasTraversal(p string) bool {
	for i := 0; i < 4; i++ {
		if strings.Contains(p, "..") {
			return true
		}
		decoded, err := url.PathUnescape(p)
		if err != nil || decoded == p {
			return false
		}
		p = decoded
	}
	return strings.Contains(p, "..")
}

func checkDeviceName(p string) error {
	base := strings.ToUpper(filepath.Base(p))
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if _, ok := reservedDeviceNames[base]; ok {
		return ErrReservedName
	}
	return nil
}

// checkStreamSuffix rejects NTFS alternate data streams such as
// "app.log:hidden". Drive letters and URL schemes are allowed.
func checkStreamSuffix(p string) error {
	i := strings.LastIndexByte(p, ':')
	if i <= 0 {
		return nil
	}
	next := byte(0)
	if i+1 < len(p) {
		next = p[i+1]
	}
	driveLetter := i == 1 || (i == 2 && (p[0] == '/' || p[0] == '\\'))
	if driveLetter && (next == '/' || next == '\\') {
		return nil
	}
	if next == '/' && i+2 < len(p) && p[i+2] == '/' {
		return nil
	}
	return ErrAlternateDataStream
}
