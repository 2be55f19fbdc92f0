// Package similarity scores string closeness for fuzzy edge routing.
//
// The algorithm and its constants (whitespace tokenization, the 20-character
// Levenshtein cutoff) are part of the routing contract: authored flows are
// tuned against them, so they must not be "improved".
package similarity

import (
	"strings"
	"unicode/utf8"
)

// shortStringLimit is the maximum character count at which character-level
// similarity is considered in addition to word overlap.
const shortStringLimit = 20

// Score returns a similarity in [0,1] between two strings: Jaccard word-set
// similarity, and for short strings the maximum of Jaccard and normalized
// Levenshtein similarity.
func Score(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	jaccard := Jaccard(a, b)

	if utf8.RuneCountInString(a) <= shortStringLimit && utf8.RuneCountInString(b) <= shortStringLimit {
		if lev := Levenshtein(a, b); lev > jaccard {
			return lev
		}
	}

	return jaccard
}

// Jaccard computes |intersection| / |union| over whitespace-separated word
// sets. Either side tokenizing to the empty set scores 0.
func Jaccard(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)

	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0

	for word := range wordsA {
		if _, ok := wordsB[word]; ok {
			intersection++
		}
	}

	union := len(wordsA) + len(wordsB) - intersection

	return float64(intersection) / float64(union)
}

// Levenshtein computes 1 − (edit distance / max length), with insertion,
// deletion and substitution each costing 1. Distance and lengths are over
// characters, not bytes, so multibyte input scores the same as ASCII.
func Levenshtein(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	runesA := []rune(a)
	runesB := []rune(b)
	lenA := len(runesA)
	lenB := len(runesB)

	previous := make([]int, lenB+1)
	current := make([]int, lenB+1)

	for j := 0; j <= lenB; j++ {
		previous[j] = j
	}

	for i := 1; i <= lenA; i++ {
		current[0] = i

		for j := 1; j <= lenB; j++ {
			if runesA[i-1] == runesB[j-1] {
				current[j] = previous[j-1]
			} else {
				current[j] = min(previous[j]+1, current[j-1]+1, previous[j-1]+1)
			}
		}

		previous, current = current, previous
	}

	maxLen := max(lenA, lenB)
	distance := previous[lenB]

	return 1 - float64(distance)/float64(maxLen)
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(text)
	set := make(map[string]struct{}, len(words))

	for _, word := range words {
		set[word] = struct{}{}
	}

	return set
}
