// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "unicode/utf8"

// UTF16Len returns the length of s in UTF-16 code units, which is how browser
// clients count characters in a text field. Runes outside the Basic
// Multilingual Plane count as two units; invalid bytes count as one.
//
// Example:
//
//	utils.UTF16Len("abc") // 3
//	utils.UTF16Len("😀")  // 2
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 && r <= utf8.MaxRune {
			n += 2
			continue
		}
		n++
	}
	return n
}

// Ellipsize shortens s to at most max runes, replacing the tail with "…"
// when it had to cut. A max <= 0 disables truncation.
func Ellipsize(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string([]rune(s)[:max-1]) + "…"
}
