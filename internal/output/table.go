package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/twiced-technology-gmbh/keepbrief/internal/balance"
	"github.com/twiced-technology-gmbh/keepbrief/internal/brief"
	"github.com/twiced-technology-gmbh/keepbrief/internal/dedupe"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

// Score bands for coloring totals.
const (
	totalHigh   = 70
	totalMedium = 40
)

const maxTaskWidth = 60

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("110"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	domainStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))

	// Total colors matching the TUI priority palette.
	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

// BriefTable renders a brief as a human-readable dashboard.
func BriefTable(w io.Writer, b brief.Brief) {
	fmt.Fprintln(w, titleStyle.Render("Keep brief "+b.GeneratedAt.Format("Monday, 02 January 2006")))
	fmt.Fprintln(w, dimStyle.Render("run "+b.RunID))
	fmt.Fprintln(w)

	fmt.Fprintln(w, sectionStyle.Render("TOP PRIORITIES"))
	if len(b.TopPriorities) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  no actionable tasks"))
	} else {
		scoreRows(w, b.TopPriorities)
	}

	if len(b.NeglectedDomains) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, sectionStyle.Render("NEGLECTED DOMAINS"))
		for _, d := range b.NeglectedDomains {
			fmt.Fprintf(w, "  %s %s\n", warnStyle.Render("!"), neglectLine(d))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionStyle.Render("SCAN SUMMARY"))
	s := b.Summary
	printField(w, "Notes scanned", strconv.Itoa(s.NotesScanned))
	printField(w, "Tasks extracted", strconv.Itoa(s.TasksExtracted))
	printField(w, "Ideas extracted", strconv.Itoa(s.IdeasExtracted))
	printField(w, "Vague notes", strconv.Itoa(s.VagueNotes))
	printField(w, "Duplicate groups", strconv.Itoa(s.DuplicateGroups))
	if s.ExtractionFailures > 0 {
		printField(w, "Failed notes", warnStyle.Render(strconv.Itoa(s.ExtractionFailures)))
	}
	if s.TasksSkipped > 0 {
		printField(w, "Tasks skipped", warnStyle.Render(strconv.Itoa(s.TasksSkipped)))
	}

	if len(b.Vague) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, sectionStyle.Render("VAGUE NOTES"))
		for _, v := range b.Vague {
			fmt.Fprintf(w, "  - %s\n", Truncate(vagueText(v), maxTaskWidth))
		}
	}
}

// ScoreTable renders ranked tasks with their score breakdowns.
func ScoreTable(w io.Writer, ranked []task.Scored) {
	if len(ranked) == 0 {
		fmt.Fprintln(os.Stderr, "No scored tasks.")
		return
	}
	scoreRows(w, ranked)
}

func scoreRows(w io.Writer, ranked []task.Scored) {
	const pad = 2
	domainW, taskW := 8, 6
	for _, t := range ranked {
		domainW = max(domainW, len(t.Domain)+pad)
		taskW = max(taskW, min(lipgloss.Width(t.Text)+pad, maxTaskWidth+pad))
	}

	header := fmt.Sprintf("%-5s %5s %4s %4s %5s  %-*s %-*s %s",
		"RANK", "TOTAL", "URG", "IMP", "STALE", domainW, "DOMAIN", taskW, "TASK", "DEADLINE")
	fmt.Fprintln(w, headerStyle.Render(strings.TrimRight(header, " ")))

	for i, t := range ranked {
		rank := t.Rank
		if rank == 0 {
			rank = i + 1
		}
		deadline := dimStyle.Render("--")
		if t.Deadline != nil {
			deadline = t.Deadline.String()
		}
		row := fmt.Sprintf("%-5d %s %4d %4d %5d  %s %s %s",
			rank,
			padLeft(totalStyle(t.Score.Total).Render(strconv.Itoa(t.Score.Total)), 5), //nolint:mnd // TOTAL column width
			t.Score.Urgency, t.Score.Impact, t.Score.Staleness,
			padRight(domainStyle.Render(t.Domain), domainW),
			padRight(Truncate(t.Text, maxTaskWidth), taskW),
			deadline)
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

// DupesTable renders duplicate groups, representative first.
func DupesTable(w io.Writer, groups []dedupe.Group) {
	if len(groups) == 0 {
		fmt.Fprintln(os.Stderr, "No duplicate groups found.")
		return
	}

	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := fmt.Sprintf("Group %d (%d tasks)", i+1, g.Size())
		fmt.Fprintln(w, titleStyle.Render(title))
		for j, m := range g.Members {
			marker := " "
			if j == 0 {
				marker = "*"
			}
			fmt.Fprintf(w, "  %s %s %s %s\n",
				marker,
				padLeft(totalStyle(m.Score.Total).Render(strconv.Itoa(m.Score.Total)), 3), //nolint:mnd // score width
				Truncate(m.Text, maxTaskWidth),
				dimStyle.Render("["+m.Domain+" "+m.SourceNoteID+"]"))
		}
	}
}

// BalanceTable renders one row per configured domain.
func BalanceTable(w io.Writer, stats []balance.DomainStat) {
	if len(stats) == 0 {
		fmt.Fprintln(os.Stderr, "No domains configured.")
		return
	}

	domainW := 8
	for _, s := range stats {
		domainW = max(domainW, len(s.Domain)+2) //nolint:mnd // column padding
	}

	header := fmt.Sprintf("%-*s %6s %6s  %s", domainW, "DOMAIN", "TASKS", "MIN", "STATUS")
	fmt.Fprintln(w, headerStyle.Render(header))
	for _, s := range stats {
		status := dimStyle.Render("ok")
		if s.IsNeglected {
			status = warnStyle.Render("neglected")
		}
		fmt.Fprintf(w, "%s %6d %6d  %s\n",
			padRight(domainStyle.Render(s.Domain), domainW), s.TaskCount, s.Threshold, status)
	}
}

// Messagef prints a simple formatted message line.
func Messagef(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}

// Truncate cuts s to maxWidth display columns, ending in "...".
func Truncate(s string, maxWidth int) string {
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, "...")
}

func neglectLine(d balance.DomainStat) string {
	return fmt.Sprintf("%s: %d task(s), expected at least %d", d.Domain, d.TaskCount, d.Threshold)
}

func vagueText(v task.Extracted) string {
	s := v.Snippet
	if s == "" {
		s = v.SourceNoteID
	}
	if v.Reason != "" {
		s += " (" + v.Reason + ")"
	}
	return s
}

func totalStyle(total int) lipgloss.Style {
	switch {
	case total >= totalHigh:
		return highStyle
	case total >= totalMedium:
		return mediumStyle
	default:
		return lowStyle
	}
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-18s %s\n", label+":", value)
}

// padRight pads s with spaces to the given visible width, accounting for ANSI
// escape codes that are invisible but consume bytes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func padLeft(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return strings.Repeat(" ", width-visible) + s
}
