// Package scoring computes the priority breakdown of extracted tasks.
// Each axis is a pure function of the task, the injected clock and the
// configuration; the Engine composes them.
package scoring

import (
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
	"github.com/twiced-technology-gmbh/keepbrief/internal/date"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

// Urgency scores time pressure from urgency keywords and deadline proximity.
type Urgency struct {
	max   int
	tiers []tier
	bonus []config.DeadlineBonus
}

type tier struct {
	score   int
	phrases [][]string
}

// NewUrgency builds an urgency scorer. Tiers are tried from the highest score
// down, so the keyword score is the best matching tier.
func NewUrgency(cfg config.UrgencyConfig) *Urgency {
	u := &Urgency{
		max:   min(cfg.Max, config.MaxUrgency),
		bonus: slices.Clone(cfg.DeadlineBonus),
	}
	for _, t := range cfg.Tiers {
		tr := tier{score: t.Score}
		for _, kw := range t.Keywords {
			if w := words(kw); len(w) > 0 {
				tr.phrases = append(tr.phrases, w)
			}
		}
		u.tiers = append(u.tiers, tr)
	}
	slices.SortStableFunc(u.tiers, func(a, b tier) int { return b.score - a.score })
	return u
}

// Score returns keyword score plus deadline bonus, clamped to [0, max].
func (u *Urgency) Score(t task.Extracted, now time.Time) int {
	return clamp(u.KeywordScore(t.UrgencyKeywords)+u.DeadlineBonus(t.Deadline, now), 0, u.max)
}

// KeywordScore returns the score of the highest tier with a keyword phrase
// found as whole words in any of keywords. No match scores 0.
func (u *Urgency) KeywordScore(keywords []string) int {
	if len(keywords) == 0 {
		return 0
	}
	candidates := make([][]string, 0, len(keywords))
	for _, kw := range keywords {
		candidates = append(candidates, words(kw))
	}
	for _, tr := range u.tiers {
		for _, phrase := range tr.phrases {
			for _, c := range candidates {
				if containsPhrase(c, phrase) {
					return tr.score
				}
			}
		}
	}
	return 0
}

// DeadlineBonus returns the proximity bonus for a deadline. Past deadlines
// count as due today; deadlines beyond the last row and absent deadlines
// score 0.
func (u *Urgency) DeadlineBonus(deadline *date.Date, now time.Time) int {
	if deadline == nil {
		return 0
	}
	days := max(deadline.DaysFrom(now), 0)
	for _, row := range u.bonus {
		if days <= row.WithinDays {
			return row.Bonus
		}
	}
	return 0
}

// words lowercases s and splits it on anything that is not a letter or digit.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// containsPhrase reports whether phrase occurs as a contiguous run in ws.
func containsPhrase(ws, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(ws) {
		return false
	}
	for i := 0; i+len(phrase) <= len(ws); i++ {
		if slices.Equal(ws[i:i+len(phrase)], phrase) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
