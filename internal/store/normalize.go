package store

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// removeDiacritics strips diacritical marks (e.g. "Señal" -> "Senal").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizePlatform canonicalizes a platform tag so "YouTube", "youtube " and
// "YouTubé" land in the same bucket: diacritics removed, lowercased, and
// internal whitespace collapsed to single dashes.
func NormalizePlatform(platform string) string {
	platform = removeDiacritics(platform)
	platform = strings.ToLower(strings.TrimSpace(platform))
	return strings.Join(strings.Fields(platform), "-")
}
