// Package textx provides small text utilities used across the project.
package textx

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TruncationMarker ends text cut by Truncate.
const TruncationMarker = "..."

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	// strip control chars outside tab/newline/carriage return
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Truncate limits s to max runes. When s is longer the result is exactly max
// runes and ends with TruncationMarker.
func Truncate(s string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s, false
	}
	marker := []rune(TruncationMarker)
	if max <= len(marker) {
		return string(marker[:max]), true
	}
	r := []rune(s)
	return string(r[:max-len(marker)]) + TruncationMarker, true
}

// Words splits s on anything that is not a letter, digit or apostrophe.
func Words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
