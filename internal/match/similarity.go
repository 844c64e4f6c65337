package match

import (
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// TokenSetRatio scores how similar two cleaned descriptions are on a
// 0-100 scale. Token order and repetition are ignored: when one token
// set contains the other the score is 100, otherwise it is the
// normalized Levenshtein similarity of the sorted token sets. This is
// the engine's single similarity metric; the usable floor lives in
// Config, not here.
func TokenSetRatio(a, b string) int {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	if containsAll(setA, setB) || containsAll(setB, setA) {
		return 100
	}

	joinedA := []rune(joinSorted(setA))
	joinedB := []rune(joinSorted(setB))
	longest := len(joinedA)
	if len(joinedB) > longest {
		longest = len(joinedB)
	}

	distance := levenshtein.DistanceForStrings(joinedA, joinedB, levenshtein.DefaultOptions)
	return (longest - distance) * 100 / longest
}

func tokenSet(s string) map[string]struct{} {
	tokens := strings.Fields(s)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

func containsAll(outer, inner map[string]struct{}) bool {
	for tok := range inner {
		if _, ok := outer[tok]; !ok {
			return false
		}
	}
	return true
}

func joinSorted(set map[string]struct{}) string {
	tokens := make([]string, 0, len(set))
	for tok := range set {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
