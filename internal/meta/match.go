package meta

import (
	"github.com/hbollon/go-edlib"
)

// Matcher scores how likely two normalized keys name the same entity.
// Confidence is in [0,1]. Ingest never consults a Matcher: artists resolve by
// exact key only. Matchers drive the explicit unification policy
// (catalog.SuggestArtistMerges), so matching policy can be tuned and tested
// on its own.
type Matcher interface {
	Match(a, b string) float64
}

// MatcherFunc adapts a plain function to the Matcher interface
type MatcherFunc func(a, b string) float64

// Match implements Matcher
func (f MatcherFunc) Match(a, b string) float64 {
	return f(a, b)
}

// ExactMatcher matches identical keys only
type ExactMatcher struct{}

// Match implements Matcher
func (ExactMatcher) Match(a, b string) float64 {
	if a == b {
		return 1
	}
	return 0
}

// JaroWinklerMatcher scores keys with Jaro-Winkler similarity.
// Keys differing only by spacing ("dj x" vs "djx") are treated as identical.
type JaroWinklerMatcher struct{}

// Match implements Matcher
func (JaroWinklerMatcher) Match(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	if squash(a) == squash(b) {
		return 1
	}

	sim, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0
	}
	return float64(sim)
}

func squash(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r != ' ' {
			out = append(out, r)
		}
	}
	return string(out)
}
