package dedupe

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
)

// Similarity scores two normalized token lists in [0, 1]. Implementations
// must be symmetric.
type Similarity interface {
	Compare(a, b []string) float64
}

// NewSimilarity returns the strategy registered under name.
func NewSimilarity(name string) (Similarity, error) {
	switch name {
	case config.SimilarityToken, "":
		return TokenSimilarity{}, nil
	case config.SimilarityEdit:
		return EditSimilarity{}, nil
	default:
		return nil, fmt.Errorf("unknown similarity strategy %q", name)
	}
}

// minAbbrevLen is the shortest token treated as a possible abbreviation.
const minAbbrevLen = 3

// TokenSimilarity is a Jaccard index over token sets in which a token also
// matches a longer token it abbreviates ("appt" and "appointment").
type TokenSimilarity struct{}

// Compare implements Similarity.
func (TokenSimilarity) Compare(a, b []string) float64 {
	setA, setB := toSet(a), toSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	exact := 0
	for t := range setA {
		if setB[t] {
			exact++
		}
	}

	// Abbreviation matches among the leftovers, counted from both sides and
	// taking the smaller so the measure stays symmetric.
	restA, restB := leftover(setA, setB), leftover(setB, setA)
	abbrev := min(countAbbrev(restA, restB), countAbbrev(restB, restA))

	matches := exact + abbrev
	return float64(matches) / float64(len(setA)+len(setB)-matches)
}

func toSet(tokens []string) map[string]bool {
	s := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		s[t] = true
	}
	return s
}

func leftover(from, other map[string]bool) []string {
	var out []string
	for t := range from {
		if !other[t] {
			out = append(out, t)
		}
	}
	return out
}

// countAbbrev counts the tokens of xs that abbreviate or are abbreviated by
// some token of ys.
func countAbbrev(xs, ys []string) int {
	n := 0
	for _, x := range xs {
		for _, y := range ys {
			if abbreviates(x, y) || abbreviates(y, x) {
				n++
				break
			}
		}
	}
	return n
}

// abbreviates reports whether short is an abbreviation of long: at least
// minAbbrevLen runes, same first rune and a subsequence of long.
func abbreviates(short, long string) bool {
	if utf8.RuneCountInString(short) < minAbbrevLen ||
		utf8.RuneCountInString(short) >= utf8.RuneCountInString(long) {
		return false
	}
	s, l := []rune(short), []rune(long)
	if s[0] != l[0] {
		return false
	}
	i := 0
	for _, r := range l {
		if i < len(s) && s[i] == r {
			i++
		}
	}
	return i == len(s)
}

// EditSimilarity is 1 - Levenshtein distance over the longer length of the
// joined token strings.
type EditSimilarity struct{}

// Compare implements Similarity.
func (EditSimilarity) Compare(a, b []string) float64 {
	sa, sb := strings.Join(a, " "), strings.Join(b, " ")
	longest := max(utf8.RuneCountInString(sa), utf8.RuneCountInString(sb))
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(sa, sb))/float64(longest)
}
