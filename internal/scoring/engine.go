package scoring

import (
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

// Engine composes the urgency, impact and staleness scorers.
type Engine struct {
	urgency   *Urgency
	impact    *Impact
	staleness Staleness
}

// NewEngine builds an Engine from the pipeline config.
func NewEngine(cfg *config.Config) *Engine {
	return &Engine{
		urgency:   NewUrgency(cfg.Urgency),
		impact:    NewImpact(cfg),
		staleness: NewStaleness(cfg.Staleness),
	}
}

// Score computes the breakdown of one task at now. Vague tasks, tasks
// without text and (in strict mode) unknown domains are InvalidInput errors.
func (e *Engine) Score(t task.Extracted, now time.Time) (task.Breakdown, error) {
	if err := task.ValidateScorable(t); err != nil {
		return task.Breakdown{}, err
	}
	impact, err := e.impact.Score(t.Domain)
	if err != nil {
		return task.Breakdown{}, err
	}
	return task.NewBreakdown(
		e.urgency.Score(t, now),
		impact,
		e.staleness.Score(t.LastEdited, now),
	), nil
}

// Failure is a task that could not be scored.
type Failure struct {
	Task task.Extracted
	Err  error
}

type result struct {
	scored task.Scored
	err    error
}

// ScoreAll scores tasks in parallel. Scored tasks keep input order; tasks
// that fail are returned as failures instead.
func (e *Engine) ScoreAll(tasks []task.Extracted, now time.Time) ([]task.Scored, []Failure) {
	results := iter.Map(tasks, func(t *task.Extracted) result {
		b, err := e.Score(*t, now)
		return result{scored: task.Scored{Extracted: *t, Score: b}, err: err}
	})

	scored := make([]task.Scored, 0, len(results))
	var failures []Failure
	for _, r := range results {
		if r.err != nil {
			failures = append(failures, Failure{Task: r.scored.Extracted, Err: r.err})
			continue
		}
		scored = append(scored, r.scored)
	}
	return scored, failures
}
