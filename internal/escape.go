package internal

import "strings"

const hexDigits = "0123456789abcdef"

// EscapeControl makes s safe to print on a terminal or append to a log file.
// Newline, carriage return and tab pass through. NUL and DEL are dropped,
// ANSI escape sequences are stripped and every other C0 control byte is
// written as \xNN.
func EscapeControl(s string) string {
	i := 0
	for i < len(s) && !isControl(s[i]) {
		i++
	}
	if i == len(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	b.WriteString(s[:i])
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case c == 0x00 || c == 0x7f:
		case c == 0x1b:
			i += escapeLength(s[i+1:])
		case isControl(c):
			b.WriteString(`\x`)
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isControl(c byte) bool {
	return c == 0x7f || (c < 0x20 && c != '\n' && c != '\r' && c != '\t')
}

// escapeLength returns how many bytes after an ESC belong to its sequence.
// CSI runs to a final byte in 0x40-0x7e, OSC to BEL or ESC \, anything else
// is a two byte sequence.
func escapeLength(rest string) int {
	if rest == "" {
		return 0
	}
	switch rest[0] {
	case '[':
		for j := 1; j < len(rest); j++ {
			if rest[j] >= 0x40 && rest[j] <= 0x7e {
				return j + 1
			}
		}
		return len(rest)
	case ']':
		for j := 1; j < len(rest); j++ {
			if rest[j] == 0x07 {
				return j + 1
			}
			if rest[j] == 0x1b && j+1 < len(rest) && rest[j+1] == '\\' {
				return j + 2
			}
		}
		return len(rest)
	default:
		return 1
	}
}
