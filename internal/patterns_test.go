package internal

import (
	"reflect"
	"testing"
)

func TestContainsKeyword(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"password", true},
		{"userPassword", true},
		{"API_KEY", true},
		{"x-access_token", true},
		{"username", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ContainsKeyword(tt.key, RedactKeywords); got != tt.want {
			t.Errorf("ContainsKeyword(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
	if !ContainsKeyword("contactEmail", MaskKeywords) {
		t.Error("contactEmail should match a mask keyword")
	}
}

func TestNormalizeKeywords(t *testing.T) {
	got := NormalizeKeywords([]string{" Session ", "", "X-Auth", "  "})
	want := []string{"session", "x-auth"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeKeywords() = %v, want %v", got, want)
	}
}

func TestDigitsOnly(t *testing.T) {
	if got := DigitsOnly("+1 (555) 010-9999"); got != "15550109999" {
		t.Errorf("DigitsOnly() = %q", got)
	}
}

func TestPatterns(t *testing.T) {
	matches := []struct {
		name  string
		match func(string) bool
		input string
		want  bool
	}{
		{"card dashes", CardPattern.MatchString, "4111-1111-1111-1111", true},
		{"card plain", CardPattern.MatchString, "4111111111111111", true},
		{"card short", CardPattern.MatchString, "4111 1111 1111", false},
		{"email whole", EmailPattern.MatchString, "jane@example.com", true},
		{"email in text", EmailPattern.MatchString, "mail jane@example.com", false},
		{"embedded email", EmbeddedEmailPattern.MatchString, "mail jane@example.com now", true},
		{"phone whole", PhonePattern.MatchString, "+1 (555) 010-9999", true},
		{"phone letters", PhonePattern.MatchString, "call me", false},
		{"embedded phone", EmbeddedPhonePattern.MatchString, "call 555-010-9999 today", true},
	}
	for _, tt := range matches {
		if got := tt.match(tt.input); got != tt.want {
			t.Errorf("%s: match(%q) = %v, want %v", tt.name, tt.input, got, tt.want)
		}
	}
}
