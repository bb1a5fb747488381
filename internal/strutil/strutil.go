// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package strutil holds small string helpers shared by the loggia packages.
package strutil

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts a CamelCase identifier to snake_case.
// Runs of upper case letters are kept together, so JSONFormatter becomes json_formatter.
func ToSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + 4)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextIsLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

// LastSegment returns the part of s after the last occurrence of sep.
func LastSegment(s string, sep string) string {
	if idx := strings.LastIndex(s, sep); idx >= 0 {
		return s[idx+len(sep):]
	}

	return s
}
