package brief

import (
	"cmp"
	"slices"

	"github.com/twiced-technology-gmbh/keepbrief/internal/date"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

// Rank returns the tasks in priority order with ranks 1..n assigned.
// The input is not modified.
func Rank(tasks []task.Scored) []task.Scored {
	ranked := slices.Clone(tasks)
	slices.SortStableFunc(ranked, Compare)
	for i := range ranked {
		ranked[i] = ranked[i].WithRank(i + 1)
	}
	return ranked
}

// Compare is the ranking order: total descending, deadline ascending (no
// deadline last), text ascending, then domain and source note.
func Compare(a, b task.Scored) int {
	return cmp.Or(
		cmp.Compare(b.Score.Total, a.Score.Total),
		date.Compare(a.Deadline, b.Deadline),
		cmp.Compare(a.Text, b.Text),
		cmp.Compare(a.Domain, b.Domain),
		cmp.Compare(a.SourceNoteID, b.SourceNoteID),
	)
}

// Top returns at most n tasks from the front of ranked.
func Top(ranked []task.Scored, n int) []task.Scored {
	if n < 0 {
		n = 0
	}
	return ranked[:min(n, len(ranked))]
}
