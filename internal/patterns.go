package internal

import (
	"regexp"
	"strings"
)

// RedactKeywords are matched as case-insensitive substrings of a key.
// A key containing any of them has its value replaced entirely.
var RedactKeywords = []string{
	"password",
	"token",
	"apikey",
	"api_key",
	"accesstoken",
	"access_token",
	"refreshtoken",
	"refresh_token",
	"secret",
	"secretkey",
	"secret_key",
	"privatekey",
	"private_key",
	"creditcard",
	"credit_card",
	"cardnumber",
	"card_number",
	"cvv",
	"pin",
	"ssn",
	"socialsecuritynumber",
}

// MaskKeywords are matched the same way but only partially obscure the value.
var MaskKeywords = []string{
	"email",
	"phone",
	"phonenumber",
	"phone_number",
}

var (
	// CardPattern matches 4x4 digit groups with optional space or dash separators.
	CardPattern = regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)

	// EmbeddedEmailPattern finds addresses inside free text.
	EmbeddedEmailPattern = regexp.MustCompile(`([A-Za-z0-9._%+-]+)@([A-Za-z0-9.-]+\.[A-Za-z]{2,})\b`)

	// EmailPattern validates a whole value as an address.
	EmailPattern = regexp.MustCompile(`^([^\s@]+)@([^\s@]+\.[^\s@]+)$`)

	// EmbeddedPhonePattern finds NANP-like numbers. Group 1 is the leading
	// boundary character, group 2 the number itself.
	EmbeddedPhonePattern = regexp.MustCompile(`(^|[^\d+])((?:\+\d{1,3}[-.\s]?)?(?:\(\d{3}\)|\d{3})[-.\s]?\d{3}[-.\s]?\d{4})\b`)

	// PhonePattern validates a whole value as a phone number.
	PhonePattern = regexp.MustCompile(`^\+?[\d\s\-().]{7,20}$`)
)

// ContainsKeyword reports whether the lower-cased key contains any keyword.
func ContainsKeyword(key string, keywords []string) bool {
	if key == "" {
		return false
	}
	lowerKey := strings.ToLower(key)
	for _, keyword := range keywords {
		if strings.Contains(lowerKey, keyword) {
			return true
		}
	}
	return false
}

// NormalizeKeywords lower-cases a caller supplied keyword list and drops blanks.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// DigitsOnly strips everything except ASCII digits.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
