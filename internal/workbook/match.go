package workbook

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes diacritic marks so "Ventas México" and "Ventas Mexico"
// compare equal.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeName folds a display name for matching: diacritics stripped,
// lowercased, whitespace collapsed.
func normalizeName(s string) string {
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// similarity computes Jaccard similarity on normalized word sets.
func similarity(a, b string) float64 {
	wordsA := wordSet(normalizeName(a))
	wordsB := wordSet(normalizeName(b))

	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}

	union := len(wordsA)
	for w := range wordsB {
		if !wordsA[w] {
			union++
		}
	}

	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		// Strip common punctuation.
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if w != "" {
			set[w] = true
		}
	}
	return set
}

// resolveName picks the candidate matching name: exact normalized equality
// first, then the best Jaccard score at or above threshold. Returns -1 when
// nothing qualifies.
func resolveName(name string, candidates []string, threshold float64) (int, float64) {
	want := normalizeName(name)
	for i, c := range candidates {
		if normalizeName(c) == want {
			return i, 1
		}
	}

	best, bestScore := -1, 0.0
	for i, c := range candidates {
		if s := similarity(name, c); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best >= 0 && bestScore >= threshold {
		return best, bestScore
	}
	return -1, 0
}
