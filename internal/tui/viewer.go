// Package tui implements an interactive terminal viewer for keepbrief briefs.
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/keepbrief/internal/brief"
	"github.com/twiced-technology-gmbh/keepbrief/internal/output"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

type tab int

const (
	tabPriorities tab = iota
	tabDuplicates
	tabDomains
	tabVague
	tabMessage
	tabCount
)

var tabNames = [tabCount]string{"Priorities", "Duplicates", "Domains", "Vague", "Message"}

// Layout constants.
const (
	viewerChrome = 4 // tab bar, blank line, status bar, error line
	barMaxWidth  = 20
	rowPrefix    = 2
)

// LoadFunc builds a fresh brief. It runs outside the UI goroutine.
type LoadFunc func() (brief.Brief, error)

type keyMap struct {
	Quit   key.Binding
	Up     key.Binding
	Down   key.Binding
	Next   key.Binding
	Prev   key.Binding
	Detail key.Binding
	Reload key.Binding
}

var keys = keyMap{
	Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c")),
	Up:     key.NewBinding(key.WithKeys("k", "up")),
	Down:   key.NewBinding(key.WithKeys("j", "down")),
	Next:   key.NewBinding(key.WithKeys("tab", "l", "right")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab", "h", "left")),
	Detail: key.NewBinding(key.WithKeys("enter")),
	Reload: key.NewBinding(key.WithKeys("r")),
}

// Viewer is the top-level bubbletea model.
type Viewer struct {
	load     LoadFunc
	brief    brief.Brief
	loaded   bool
	loading  bool
	loadedAt time.Time
	tab      tab
	rows     [tabCount]int
	detail   bool
	width    int
	height   int
	err      error
	now      func() time.Time

	// Rendered message preview, cached per width.
	message      string
	messageWidth int
}

// ReloadMsg is sent by the file watcher to trigger a rebuild of the brief.
type ReloadMsg struct{}

type loadedMsg struct {
	brief brief.Brief
	err   error
}

// NewViewer creates a Viewer that loads its brief with load.
func NewViewer(load LoadFunc) *Viewer {
	return &Viewer{load: load, now: time.Now}
}

// Init implements tea.Model.
func (v *Viewer) Init() tea.Cmd {
	return v.loadCmd()
}

func (v *Viewer) loadCmd() tea.Cmd {
	if v.loading {
		return nil
	}
	v.loading = true
	load := v.load
	return func() tea.Msg {
		b, err := load()
		return loadedMsg{brief: b, err: err}
	}
}

// Update implements tea.Model.
func (v *Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKey(msg)
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil
	case ReloadMsg:
		return v, v.loadCmd()
	case loadedMsg:
		v.loading = false
		if msg.err != nil {
			v.err = msg.err
			return v, nil
		}
		v.err = nil
		v.brief = msg.brief
		v.loaded = true
		v.loadedAt = v.now()
		v.message = ""
		v.clampRows()
		return v, nil
	}
	return v, nil
}

func (v *Viewer) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		if v.detail && msg.String() == "esc" {
			v.detail = false
			return v, nil
		}
		return v, tea.Quit
	case key.Matches(msg, keys.Reload):
		return v, v.loadCmd()
	case key.Matches(msg, keys.Next):
		v.tab = (v.tab + 1) % tabCount
		v.detail = false
	case key.Matches(msg, keys.Prev):
		v.tab = (v.tab + tabCount - 1) % tabCount
		v.detail = false
	case key.Matches(msg, keys.Down):
		if v.rows[v.tab] < v.rowCount(v.tab)-1 {
			v.rows[v.tab]++
		}
	case key.Matches(msg, keys.Up):
		if v.rows[v.tab] > 0 {
			v.rows[v.tab]--
		}
	case key.Matches(msg, keys.Detail):
		if v.rowCount(v.tab) > 0 && v.tab != tabMessage {
			v.detail = !v.detail
		}
	}
	return v, nil
}

func (v *Viewer) rowCount(t tab) int {
	switch t {
	case tabPriorities:
		return len(v.brief.Ranked)
	case tabDuplicates:
		return len(v.brief.Duplicates)
	case tabDomains:
		return len(v.brief.Domains)
	case tabVague:
		return len(v.brief.Vague)
	case tabMessage:
		return strings.Count(v.renderedMessage(), "\n") + 1
	}
	return 0
}

func (v *Viewer) clampRows() {
	for t := range tabCount {
		n := v.rowCount(t)
		if v.rows[t] >= n {
			v.rows[t] = max(n-1, 0)
		}
	}
	if v.rowCount(v.tab) == 0 {
		v.detail = false
	}
}

// --- Styles ---

var (
	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	neglectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// --- View rendering ---

// View implements tea.Model.
func (v *Viewer) View() string {
	if v.width == 0 || (!v.loaded && v.err == nil) {
		return "Loading..."
	}

	body := v.renderBody()
	if avail := v.height - viewerChrome; avail > 0 {
		body = clipLines(body, avail)
	}

	return lipgloss.JoinVertical(lipgloss.Left, v.renderTabs(), body, "", v.renderStatusBar())
}

func (v *Viewer) renderTabs() string {
	parts := make([]string, tabCount)
	for i := range tabCount {
		label := tabNames[i]
		if n := v.badge(i); n > 0 {
			label += " " + strconv.Itoa(n)
		}
		if i == v.tab {
			parts[i] = activeTabStyle.Render(label)
		} else {
			parts[i] = tabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (v *Viewer) badge(t tab) int {
	switch t {
	case tabDuplicates:
		return len(v.brief.Duplicates)
	case tabDomains:
		return len(v.brief.NeglectedDomains)
	case tabVague:
		return v.brief.Summary.VagueNotes
	}
	return 0
}

func (v *Viewer) renderBody() string {
	var lines []string
	switch v.tab {
	case tabPriorities:
		for i, t := range v.brief.Ranked {
			lines = append(lines, v.row(i, priorityLine(t)))
		}
	case tabDuplicates:
		for i, g := range v.brief.Duplicates {
			lines = append(lines, v.row(i, fmt.Sprintf("(%d) %s", g.Size(), g.Representative.Text)))
		}
	case tabDomains:
		for i, d := range v.brief.Domains {
			bar := barStyle.Render(strings.Repeat("█", min(d.TaskCount, barMaxWidth)))
			line := fmt.Sprintf("%-18s %3d / %-3d %s", d.Domain, d.TaskCount, d.Threshold, bar)
			if d.IsNeglected {
				line += " " + neglectStyle.Render("neglected")
			}
			lines = append(lines, v.row(i, line))
		}
	case tabVague:
		for i, t := range v.brief.Vague {
			line := t.Snippet
			if t.Reason != "" {
				line += " " + dimStyle.Render("("+t.Reason+")")
			}
			lines = append(lines, v.row(i, line))
		}
	case tabMessage:
		msgLines := strings.Split(v.renderedMessage(), "\n")
		return strings.Join(msgLines[min(v.rows[tabMessage], len(msgLines)):], "\n")
	}

	if len(lines) == 0 {
		return dimStyle.Render("  nothing here")
	}

	body := strings.Join(lines, "\n")
	if v.detail {
		body = lipgloss.JoinVertical(lipgloss.Left, v.renderDetail(), "", body)
	}
	return body
}

func (v *Viewer) row(i int, text string) string {
	text = output.Truncate(text, max(v.width-rowPrefix, 1))
	if i == v.rows[v.tab] {
		return selectedStyle.Render("> ") + text
	}
	return "  " + text
}

func priorityLine(t task.Scored) string {
	line := fmt.Sprintf("%3d. %3d  %-18s %s", t.Rank, t.Score.Total, t.Domain, t.Text)
	if t.Deadline != nil {
		line += " " + dimStyle.Render("due "+t.Deadline.String())
	}
	return line
}

func (v *Viewer) renderDetail() string {
	var content string
	switch v.tab {
	case tabPriorities:
		content = taskDetail(v.brief.Ranked[v.rows[tabPriorities]])
	case tabDuplicates:
		g := v.brief.Duplicates[v.rows[tabDuplicates]]
		var sb strings.Builder
		fmt.Fprintf(&sb, "%d tasks describe the same work:\n", g.Size())
		for _, m := range g.Members {
			fmt.Fprintf(&sb, "\n  %3d  %s %s", m.Score.Total, m.Text, dimStyle.Render("["+m.SourceNoteID+"]"))
		}
		content = sb.String()
	case tabDomains:
		d := v.brief.Domains[v.rows[tabDomains]]
		content = fmt.Sprintf("%s\n\n  tasks:     %d\n  threshold: %d", d.Domain, d.TaskCount, d.Threshold)
		if d.IsNeglected {
			content += "\n\n" + warnStyle.Render("below threshold")
		}
	case tabVague:
		t := v.brief.Vague[v.rows[tabVague]]
		content = fmt.Sprintf("note %s\n\n%s", t.SourceNoteID, t.Snippet)
		if t.Reason != "" {
			content += "\n\n" + dimStyle.Render(t.Reason)
		}
	}
	return detailStyle.Width(max(v.width-rowPrefix, 1)).Render(content)
}

func taskDetail(t task.Scored) string {
	var sb strings.Builder
	sb.WriteString(lipgloss.NewStyle().Bold(true).Render(t.Text))
	fmt.Fprintf(&sb, "\n\n  urgency   %3d", t.Score.Urgency)
	fmt.Fprintf(&sb, "\n  impact    %3d", t.Score.Impact)
	fmt.Fprintf(&sb, "\n  staleness %3d", t.Score.Staleness)
	fmt.Fprintf(&sb, "\n  total     %3d", t.Score.Total)
	sb.WriteString("\n\n  domain:   " + t.Domain)
	if t.Deadline != nil {
		sb.WriteString("\n  deadline: " + t.Deadline.String())
	}
	if len(t.UrgencyKeywords) > 0 {
		sb.WriteString("\n  keywords: " + strings.Join(t.UrgencyKeywords, ", "))
	}
	if !t.LastEdited.IsZero() {
		sb.WriteString("\n  edited:   " + t.LastEdited.Format("2006-01-02"))
	}
	sb.WriteString("\n  note:     " + t.SourceNoteID)
	return sb.String()
}

func (v *Viewer) renderedMessage() string {
	if v.message != "" && v.messageWidth == v.width {
		return v.message
	}
	md := output.BriefMarkdown(v.brief)
	rendered, err := output.RenderMarkdown(md, max(v.width-rowPrefix, 20)) //nolint:mnd // minimum wrap width
	if err != nil {
		rendered = md
	}
	v.message = strings.TrimRight(rendered, "\n")
	v.messageWidth = v.width
	return v.message
}

func (v *Viewer) renderStatusBar() string {
	s := v.brief.Summary
	status := fmt.Sprintf(" %d notes | %d tasks | %d vague | %d dupes",
		s.NotesScanned, s.TasksExtracted, s.VagueNotes, s.DuplicateGroups)
	if v.loaded {
		status += " | updated " + v.loadedAt.Format("15:04:05")
	}
	if v.loading {
		status += " | reloading..."
	}
	status += " | tab:switch enter:detail r:reload q:quit"
	status = output.Truncate(status, max(v.width, 1))

	if v.err != nil {
		errStr := errorStyle.Render(output.Truncate("Error: "+v.err.Error(), max(v.width, 1)))
		return errStr + "\n" + statusBarStyle.Render(status)
	}
	return statusBarStyle.Render(status)
}

func clipLines(s string, n int) string {
	lines := strings.SplitN(s, "\n", n+1)
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
