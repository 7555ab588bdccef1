// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TruncateRunes truncates a string to a maximum number of runes.
// Counting runes instead of bytes keeps multi-byte UTF-8 characters
// intact. If the string is truncated, "..." is appended.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// NormalizeInput prepares user-entered text for sending: trims
// surrounding whitespace, strips carriage returns pasted in from other
// platforms, and NFC-normalizes so the same text always serializes to
// the same bytes.
func NormalizeInput(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSpace(s)
	return norm.NFC.String(s)
}

// ShortID returns the first n characters of an identifier, or the
// whole identifier when it is shorter than n.
func ShortID(id string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(id)
	if len(runes) <= n {
		return id
	}
	return string(runes[:n])
}
