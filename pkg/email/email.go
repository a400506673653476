// Package email derives presentable names from email addresses. Used when a
// donor signs up with contact details but no name.
package email

import (
	"strings"
	"unicode"
)

// DeriveDisplayName builds a human-readable name from the local part of an
// email address: "priya.nair@example.com" becomes "Priya Nair". Returns ""
// when nothing usable can be derived.
func DeriveDisplayName(address string) string {
	localPart := address
	if at := strings.IndexByte(address, '@'); at >= 0 {
		localPart = address[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	for i, part := range parts {
		parts[i] = capitalize(part)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
