package validator

import "strings"

// Similarity scores two strings in [0,1] for controlled-vocabulary matching:
// identical strings score 1.0, substring containment in either direction
// scores 0.9, anything else scores the Jaccard index of the two strings'
// distinct character sets (intersection over union).
//
// The character-set Jaccard is a deliberate approximation: it ignores
// character order and repetition, so it is not a token-level similarity.
// Anagrams score 1.0 under it, which is acceptable for the short vocabulary
// entries it is applied to.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.9
	}

	setA := charSet(a)
	setB := charSet(b)

	intersection := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func charSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}
