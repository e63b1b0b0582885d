// Package textutil normalises free text for searching.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// đ/Đ are letters of their own, not d plus a combining mark, so NFD leaves them.
var strokeD = strings.NewReplacer("đ", "d", "Đ", "D")

// Fold lowercases s and strips diacritics, so "Nguyễn Đức" and "nguyen duc"
// compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strokeD.Replace(folded))
}

// Contains reports whether needle occurs in haystack after folding both.
func Contains(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}
