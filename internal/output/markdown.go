package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/twiced-technology-gmbh/keepbrief/internal/brief"
)

// vagueSnippetLength is the number of runes of each vague note shown in the
// message.
const vagueSnippetLength = 60

var colorEnabled = true

// BriefMarkdown builds the notification message for a brief.
func BriefMarkdown(b brief.Brief) string {
	var sb strings.Builder

	sb.WriteString("🧠 *KEEP INTELLIGENCE BRIEF*\n")
	sb.WriteString("_" + b.GeneratedAt.Format("Monday, 02 January 2006") + "_\n")

	if len(b.TopPriorities) > 0 {
		sb.WriteString("\n🎯 *TOP PRIORITIES*\n")
		for i, t := range b.TopPriorities {
			fmt.Fprintf(&sb, "  %d. %s  [%s]  ⚡%d\n", i+1, t.Text, t.Domain, t.Score.Total)
		}
	}

	if len(b.NeglectedDomains) > 0 {
		sb.WriteString("\n⚠️ *NEGLECTED DOMAINS*\n")
		for _, d := range b.NeglectedDomains {
			sb.WriteString("  • " + neglectLine(d) + "\n")
		}
	}

	s := b.Summary
	sb.WriteString("\n📊 *SCAN SUMMARY*\n")
	fmt.Fprintf(&sb, "  Notes scanned: %d\n", s.NotesScanned)
	fmt.Fprintf(&sb, "  Tasks extracted: %d\n", s.TasksExtracted)
	fmt.Fprintf(&sb, "  Vague notes: %d\n", s.VagueNotes)
	fmt.Fprintf(&sb, "  Duplicate groups: %d\n", s.DuplicateGroups)

	if len(b.Vague) > 0 {
		sb.WriteString("\n🌫️ *VAGUE NOTES (need clarity)*\n")
		for _, v := range b.Vague {
			snippet := []rune(v.Snippet)
			if len(snippet) > vagueSnippetLength {
				snippet = snippet[:vagueSnippetLength]
			}
			if len(snippet) == 0 {
				snippet = []rune(v.SourceNoteID)
			}
			sb.WriteString("  • _" + string(snippet) + "_...\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// RenderMarkdown renders markdown for the terminal, wrapped at width columns.
// Plain styling is used when color output is disabled.
func RenderMarkdown(md string, width int) (string, error) {
	style := "dark"
	if !colorEnabled {
		style = "notty"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}
