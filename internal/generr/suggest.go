package generr

import (
	"github.com/agext/levenshtein"
)

// Suggest returns the candidate closest to given, or "" when nothing is
// close enough to be a plausible typo. Ties go to the earlier candidate.
func Suggest(given string, candidates []string) string {
	best, bestDist := "", 3
	for _, c := range candidates {
		if d := levenshtein.Distance(given, c, nil); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// DidYouMean formats a suggestion as a sentence suffix, or "" when there is none.
func DidYouMean(given string, candidates []string) string {
	if s := Suggest(given, candidates); s != "" {
		return " Did you mean \"" + s + "\"?"
	}
	return ""
}
