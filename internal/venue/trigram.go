// Package venue resolves free-text venue spellings against the canonical
// registry using trigram similarity, which tolerates word reordering and
// partial overlap better than edit distance for venue names.
package venue

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// normalizeText lowercases, strips diacritics, and collapses runs of
// non-alphanumeric characters to single spaces, so "Café São" and "cafe sao"
// produce the same trigrams.
func normalizeText(s string) string {
	folded, _, err := transform.String(foldDiacritics, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// trigrams returns the distinct padded trigrams of s. Padding with leading
// and trailing spaces weights word boundaries the way pg_trgm does.
func trigrams(s string) []string {
	s = normalizeText(s)
	if s == "" {
		return nil
	}

	padded := "  " + s + " "
	runes := []rune(padded)

	seen := make(map[string]struct{}, len(runes))
	out := make([]string, 0, len(runes))
	for i := 0; i+3 <= len(runes); i++ {
		g := string(runes[i : i+3])
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

// Similarity is the Jaccard overlap of the two strings' trigram sets, in
// [0,1]. Order-independent and case-insensitive.
func Similarity(a, b string) float64 {
	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(ta))
	for _, g := range ta {
		set[g] = struct{}{}
	}

	var shared int
	for _, g := range tb {
		if _, ok := set[g]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(ta)+len(tb)-shared)
}
