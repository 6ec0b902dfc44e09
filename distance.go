package gonote

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// MinUniqueChars is the minimum edit distance between an original note and
// its translation for the translation to be worth showing.
const MinUniqueChars = 2

// SameAsOriginal reports whether a translation equals the original once
// surrounding whitespace and newlines are ignored.
func SameAsOriginal(original, translated string) bool {
	return strings.TrimSpace(original) == strings.TrimSpace(translated)
}

// DistinctEnough reports whether the edit distance between original and
// translated is at least threshold.
func DistinctEnough(original, translated string, threshold int) bool {
	d := levenshtein.DistanceForStrings([]rune(original), []rune(translated), levenshtein.DefaultOptionsWithSub)
	return d >= threshold
}
