package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/twiced-technology-gmbh/keepbrief/internal/balance"
	"github.com/twiced-technology-gmbh/keepbrief/internal/brief"
	"github.com/twiced-technology-gmbh/keepbrief/internal/dedupe"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

// BriefCompact renders a brief in compact format.
func BriefCompact(w io.Writer, b brief.Brief) {
	s := b.Summary
	fmt.Fprintf(w, "brief %s notes:%d tasks:%d vague:%d dupes:%d failed:%d skipped:%d\n",
		b.GeneratedAt.Format("2006-01-02"), s.NotesScanned, s.TasksExtracted, s.VagueNotes,
		s.DuplicateGroups, s.ExtractionFailures, s.TasksSkipped)

	for i, t := range b.TopPriorities {
		fmt.Fprintln(w, formatScoredLine(i+1, t))
	}
	if len(b.NeglectedDomains) > 0 {
		parts := make([]string, 0, len(b.NeglectedDomains))
		for _, d := range b.NeglectedDomains {
			parts = append(parts, d.Domain+"="+strconv.Itoa(d.TaskCount)+"/"+strconv.Itoa(d.Threshold))
		}
		fmt.Fprintln(w, "Neglected: "+strings.Join(parts, " "))
	}
}

// ScoreCompact renders ranked tasks one per line.
func ScoreCompact(w io.Writer, ranked []task.Scored) {
	if len(ranked) == 0 {
		fmt.Fprintln(os.Stderr, "No scored tasks.")
		return
	}
	for i, t := range ranked {
		fmt.Fprintln(w, formatScoredLine(i+1, t))
	}
}

// DupesCompact renders one line per group.
func DupesCompact(w io.Writer, groups []dedupe.Group) {
	if len(groups) == 0 {
		fmt.Fprintln(os.Stderr, "No duplicate groups found.")
		return
	}
	for _, g := range groups {
		texts := make([]string, len(g.Members))
		for i, m := range g.Members {
			texts[i] = m.Text
		}
		fmt.Fprintf(w, "(%d) %s\n", g.Size(), strings.Join(texts, " | "))
	}
}

// BalanceCompact renders domain counts on one line.
func BalanceCompact(w io.Writer, stats []balance.DomainStat) {
	parts := make([]string, 0, len(stats))
	for _, s := range stats {
		p := s.Domain + "=" + strconv.Itoa(s.TaskCount) + "/" + strconv.Itoa(s.Threshold)
		if s.IsNeglected {
			p += "!"
		}
		parts = append(parts, p)
	}
	fmt.Fprintln(w, strings.Join(parts, " "))
}

// formatScoredLine builds the one-line representation of a scored task.
func formatScoredLine(pos int, t task.Scored) string {
	rank := t.Rank
	if rank == 0 {
		rank = pos
	}
	line := "#" + strconv.Itoa(rank) + " [" + strconv.Itoa(t.Score.Total) + " " +
		strconv.Itoa(t.Score.Urgency) + "/" + strconv.Itoa(t.Score.Impact) + "/" +
		strconv.Itoa(t.Score.Staleness) + "] " + t.Text + " (" + t.Domain + ")"
	if t.Deadline != nil {
		line += " due:" + t.Deadline.String()
	}
	return line
}
