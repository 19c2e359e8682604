package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes a raw player or team identifier so records from
// different sources join on the same key. Pure: same input, same output.
// Case folded, diacritics stripped, underscores treated as separators,
// inner whitespace collapsed. Hyphens are kept: they are part of real
// names, not id plumbing.
func Normalize(rawID string) string {
	folded, _, err := transform.String(foldDiacritics, rawID)
	if err != nil {
		folded = rawID
	}
	folded = strings.ReplaceAll(folded, "_", " ")
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Variants returns the casings worth querying when the upstream store is
// inconsistent about capitalization: the canonical form, the raw input, an
// upper-cased and a title-cased rendition. Order is stable and duplicates
// are removed.
func Variants(rawID string) []string {
	canonical := Normalize(rawID)

	candidates := []string{
		canonical,
		strings.TrimSpace(rawID),
		strings.ToUpper(canonical),
		titleCase(canonical),
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

// SameIdentity reports whether two raw identifiers collapse to one
// canonical id.
func SameIdentity(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

func titleCase(value string) string {
	words := strings.Fields(value)
	for i, word := range words {
		r := []rune(word)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
