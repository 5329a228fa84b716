// Package task holds the task records that flow through the pipeline:
// extractions from the note corpus, their score breakdowns and ranked results.
package task

import (
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/keepbrief/internal/date"
)

// Uncategorized is the domain for tasks outside the closed domain set.
const Uncategorized = "uncategorized"

// Extracted is one task candidate produced by the extraction layer.
// It is never modified after extraction.
type Extracted struct {
	Text            string     `yaml:"text" json:"text"`
	Domain          string     `yaml:"domain" json:"domain"`
	Deadline        *date.Date `yaml:"deadline,omitempty" json:"deadline,omitempty"`
	UrgencyKeywords []string   `yaml:"urgency_keywords,omitempty" json:"urgency_keywords,omitempty"`
	LastEdited      time.Time  `yaml:"last_edited" json:"last_edited"`
	IsVague         bool       `yaml:"is_vague,omitempty" json:"is_vague,omitempty"`
	SourceNoteID    string     `yaml:"source_note_id" json:"source_note_id"`

	// Snippet is the start of the source note, shown for vague notes.
	Snippet string `yaml:"snippet,omitempty" json:"snippet,omitempty"`
	// Reason explains why a note was flagged vague.
	Reason string `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// Item is a note finding that is not a task: an idea to keep in mind or a
// piece of reference information. Items are archived, never scored.
type Item struct {
	Title        string `yaml:"title" json:"title"`
	Content      string `yaml:"content,omitempty" json:"content,omitempty"`
	Domain       string `yaml:"domain,omitempty" json:"domain,omitempty"`
	SourceNoteID string `yaml:"source_note_id" json:"source_note_id"`
}

// Breakdown is the per-axis priority score of a task.
type Breakdown struct {
	Urgency   int `yaml:"urgency" json:"urgency"`
	Impact    int `yaml:"impact" json:"impact"`
	Staleness int `yaml:"staleness" json:"staleness"`
	Total     int `yaml:"total" json:"total"`
}

// NewBreakdown builds a Breakdown whose Total is the sum of the components.
// Components must already be clamped by their scorers.
func NewBreakdown(urgency, impact, staleness int) Breakdown {
	return Breakdown{
		Urgency:   urgency,
		Impact:    impact,
		Staleness: staleness,
		Total:     urgency + impact + staleness,
	}
}

// Scored is an extracted task with its score. Rank is 0 until the brief
// composer ranks the task set.
type Scored struct {
	Extracted `yaml:",inline"`

	Score Breakdown `yaml:"score" json:"score"`
	Rank  int       `yaml:"rank,omitempty" json:"rank,omitempty"`
}

// WithRank returns a copy of s with the given rank.
func (s Scored) WithRank(rank int) Scored {
	s.Rank = rank
	return s
}

// NormalizeDomain lowercases a domain label and maps the spellings of
// "uncategorized" (and the empty label) to Uncategorized.
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.NewReplacer(" ", "_", "-", "_").Replace(d)
	switch d {
	case "", "uncategorised", "uncategorized", "other", "none":
		return Uncategorized
	}
	return d
}
