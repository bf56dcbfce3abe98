// Package email holds helpers for account email addresses.
package email

import (
	"strings"
	"unicode"
)

// Normalize trims and lowercases an address for lookup and storage.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// DisplayName derives a human name from the local part of addr:
// "ann.lee@example.com" becomes "Ann Lee". It returns "" when the local
// part has no letters or digits.
func DisplayName(addr string) string {
	local := strings.TrimSpace(addr)
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	// tags after + are routing hints, not part of the name
	if plus := strings.IndexByte(local, '+'); plus >= 0 {
		local = local[:plus]
	}
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
