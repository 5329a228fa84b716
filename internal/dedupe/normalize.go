// Package dedupe groups near-duplicate tasks. Texts are normalized, compared
// pairwise with a pluggable Similarity and merged transitively.
package dedupe

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer turns task text into comparable tokens.
type Normalizer struct {
	stopWords map[string]bool
}

// NewNormalizer builds a Normalizer dropping the given stop words.
func NewNormalizer(stopWords []string) *Normalizer {
	n := &Normalizer{stopWords: make(map[string]bool, len(stopWords))}
	for _, w := range stopWords {
		for _, tok := range fold(w) {
			n.stopWords[tok] = true
		}
	}
	return n
}

// Tokens case-folds s, strips accents, splits on punctuation and removes
// stop words.
func (n *Normalizer) Tokens(s string) []string {
	toks := fold(s)
	out := toks[:0]
	for _, t := range toks {
		if !n.stopWords[t] {
			out = append(out, t)
		}
	}
	return out
}

// fold case-folds and accent-strips s and splits it into words.
func fold(s string) []string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	folded := cases.Fold().String(stripped)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
