package brief

import (
	"time"

	"github.com/google/uuid"

	"github.com/twiced-technology-gmbh/keepbrief/internal/balance"
	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
	"github.com/twiced-technology-gmbh/keepbrief/internal/dedupe"
	"github.com/twiced-technology-gmbh/keepbrief/internal/logging"
	"github.com/twiced-technology-gmbh/keepbrief/internal/scoring"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

// Composer turns extractions into a Brief. It never calls the extraction
// layer itself.
type Composer struct {
	cfg      *config.Config
	engine   *scoring.Engine
	detector *dedupe.Detector
	logger   *logging.Logger
	newRunID func() string
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRunID fixes the run ID generator.
func WithRunID(fn func() string) Option {
	return func(c *Composer) { c.newRunID = fn }
}

// NewComposer builds a Composer for cfg.
func NewComposer(cfg *config.Config, opts ...Option) (*Composer, error) {
	detector, err := dedupe.NewDetector(cfg.Duplicates)
	if err != nil {
		return nil, err
	}
	c := &Composer{
		cfg:      cfg,
		engine:   scoring.NewEngine(cfg),
		detector: detector,
		logger:   logging.NopLogger(),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Compose runs the pipeline over in at now: drop vague records, score, group
// duplicates, analyze balance, rank and cut the top N. Tasks that cannot be
// scored are skipped and counted.
func (c *Composer) Compose(in Input, now time.Time) Brief {
	runID := c.newRunID()
	log := c.logger.WithRun(runID)

	actionable, vague := splitVague(in.Tasks)

	scored, failures := c.engine.ScoreAll(actionable, now)
	for _, f := range failures {
		log.WithPhase("score").Warn("skipping task",
			"source_note_id", f.Task.SourceNoteID, "text", f.Task.Text, "error", f.Err.Error())
	}

	ranked := Rank(scored)
	groups := c.detector.Group(ranked)

	counted := make([]task.Extracted, len(ranked))
	for i, s := range ranked {
		counted[i] = s.Extracted
	}
	domains := balance.Analyze(counted, c.cfg)
	neglected := balance.Neglected(domains)

	b := Brief{
		RunID:            runID,
		GeneratedAt:      now,
		TopPriorities:    nonNil(Top(ranked, c.cfg.Brief.TopN)),
		NeglectedDomains: nonNil(neglected),
		Duplicates:       nonNil(groups),
		Domains:          domains,
		Vague:            previewVague(vague, c.cfg.Brief.VaguePreview),
		Ranked:           ranked,
		Ideas:            in.Ideas,
		References:       in.References,
		Summary: Summary{
			NotesScanned:       in.NotesScanned,
			TasksExtracted:     len(actionable),
			IdeasExtracted:     len(in.Ideas),
			References:         len(in.References),
			VagueNotes:         countVagueNotes(vague, in.FailedNotes),
			DuplicateGroups:    len(groups),
			ExtractionFailures: len(in.FailedNotes),
			TasksSkipped:       len(failures),
			DomainsNeglected:   len(neglected),
		},
	}

	log.WithPhase("compose").Info("brief composed",
		"notes_scanned", b.Summary.NotesScanned,
		"tasks_extracted", b.Summary.TasksExtracted,
		"ideas_extracted", b.Summary.IdeasExtracted,
		"tasks_skipped", b.Summary.TasksSkipped,
		"vague_notes", b.Summary.VagueNotes,
		"duplicate_groups", b.Summary.DuplicateGroups,
		"domains_neglected", b.Summary.DomainsNeglected)

	return b
}

func splitVague(tasks []task.Extracted) (actionable, vague []task.Extracted) {
	for _, t := range tasks {
		if t.IsVague {
			vague = append(vague, t)
		} else {
			actionable = append(actionable, t)
		}
	}
	return actionable, vague
}

// countVagueNotes counts distinct notes that were vague or failed. Vague
// records without a note ID count once each.
func countVagueNotes(vague []task.Extracted, failed []string) int {
	seen := make(map[string]bool)
	anonymous := 0
	for _, t := range vague {
		if t.SourceNoteID == "" {
			anonymous++
			continue
		}
		seen[t.SourceNoteID] = true
	}
	for _, id := range failed {
		seen[id] = true
	}
	return len(seen) + anonymous
}

// previewVague returns up to n vague records, one per note, in input order.
func previewVague(vague []task.Extracted, n int) []task.Extracted {
	var out []task.Extracted
	seen := make(map[string]bool)
	for _, t := range vague {
		if len(out) >= n {
			break
		}
		if t.SourceNoteID != "" {
			if seen[t.SourceNoteID] {
				continue
			}
			seen[t.SourceNoteID] = true
		}
		out = append(out, t)
	}
	return out
}

// nonNil keeps empty sections as [] rather than null in JSON output.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
