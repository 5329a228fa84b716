// Package brief composes the ranked priority brief from one run's
// extractions.
package brief

import (
	"time"

	"github.com/twiced-technology-gmbh/keepbrief/internal/balance"
	"github.com/twiced-technology-gmbh/keepbrief/internal/dedupe"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

// Input is the output of one extraction run.
type Input struct {
	// NotesScanned is the number of notes handed to extraction.
	NotesScanned int
	// Tasks holds every extracted record, vague ones included.
	Tasks []task.Extracted
	// FailedNotes lists notes whose extraction failed.
	FailedNotes []string
	// Ideas and References are carried through to the archive unscored.
	Ideas      []task.Item
	References []task.Item
}

// Summary holds the run counters.
type Summary struct {
	NotesScanned       int `json:"notes_scanned" yaml:"notes_scanned"`
	TasksExtracted     int `json:"tasks_extracted" yaml:"tasks_extracted"`
	IdeasExtracted     int `json:"ideas_extracted" yaml:"ideas_extracted"`
	References         int `json:"references" yaml:"references"`
	VagueNotes         int `json:"vague_notes" yaml:"vague_notes"`
	DuplicateGroups    int `json:"duplicate_groups" yaml:"duplicate_groups"`
	ExtractionFailures int `json:"extraction_failures" yaml:"extraction_failures"`
	TasksSkipped       int `json:"tasks_skipped" yaml:"tasks_skipped"`
	DomainsNeglected   int `json:"domains_neglected" yaml:"domains_neglected"`
}

// Brief is the terminal artifact of a run.
type Brief struct {
	RunID            string               `json:"run_id" yaml:"run_id"`
	GeneratedAt      time.Time            `json:"generated_at" yaml:"generated_at"`
	TopPriorities    []task.Scored        `json:"top_priorities" yaml:"top_priorities"`
	NeglectedDomains []balance.DomainStat `json:"neglected_domains" yaml:"neglected_domains"`
	Summary          Summary              `json:"summary" yaml:"summary"`
	Duplicates       []dedupe.Group       `json:"duplicates" yaml:"duplicates"`
	Domains          []balance.DomainStat `json:"domains" yaml:"domains"`
	Vague            []task.Extracted     `json:"vague,omitempty" yaml:"vague,omitempty"`

	// Ranked is every scored task in rank order. Ranked, Ideas and
	// References are archived but not part of the brief output.
	Ranked     []task.Scored `json:"-" yaml:"-"`
	Ideas      []task.Item   `json:"-" yaml:"-"`
	References []task.Item   `json:"-" yaml:"-"`
}
