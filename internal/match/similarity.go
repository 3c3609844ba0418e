package match

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity scores two canonicalized names in [0,1]:
// 1 - editDistance(a,b) / max(len(a), len(b)), classic unit-cost Levenshtein
// over runes. Two empty strings are defined as identical (1).
// The score is symmetric and 1 exactly when a == b.
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}
