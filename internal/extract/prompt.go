package extract

import (
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/keepbrief/internal/notes"
)

// maxPromptContent bounds the note content sent per note.
const maxPromptContent = 500

func systemPrompt(domains []string) string {
	var sb strings.Builder

	sb.WriteString(`You extract actionable tasks from personal notes.

Rules:
1. Rewrite each task as a short, explicit, actionable description.
2. Do not invent tasks or deadlines that the note does not state or clearly imply.
3. A note may contain several tasks, one task, or none.
4. Flag a note as vague when it is too unclear to act on, and say why.
5. Ideas are creative thoughts, project concepts or wishes that are not
   immediately actionable. References are information to keep: links,
   contacts, codes, recipes, addresses. Neither is a task or vague.
6. Return ONLY a JSON object, no markdown and no commentary.

Domains (assign exactly one per task and per idea):
`)
	for _, d := range domains {
		sb.WriteString("- ")
		sb.WriteString(d)
		sb.WriteString("\n")
	}
	sb.WriteString(`- uncategorized

Urgency words: copy any words or phrases signalling time pressure verbatim,
such as today, urgent, ASAP, now, immediately, deadline, overdue, due,
tomorrow, this week, expires, final, last chance, soon.

Deadlines: resolve explicit or relative dates against today's date into
YYYY-MM-DD. Use null when the note has no deadline.

Output schema:
{
  "tasks": [
    {
      "task": "Clear actionable description",
      "domain": "finance",
      "urgency_words": ["deadline"],
      "deadline": "2026-01-31",
      "source_note_ids": ["note_0001"]
    }
  ],
  "ideas": [
    {
      "title": "Short idea title",
      "content": "Idea description",
      "domain": "personal_projects",
      "source_note_id": "note_0005"
    }
  ],
  "references": [
    {
      "title": "What this reference is",
      "content": "The reference content",
      "source_note_id": "note_0010"
    }
  ],
  "vague": [
    {"source_note_id": "note_0002", "reason": "Why it is unclear"}
  ]
}`)

	return sb.String()
}

func userPrompt(batch []notes.Note, today time.Time) string {
	var sb strings.Builder

	sb.WriteString("Today is ")
	sb.WriteString(today.Format("Monday 2006-01-02"))
	sb.WriteString(".\n\nNotes:\n")

	for _, n := range batch {
		sb.WriteString("\n--- NOTE [")
		sb.WriteString(n.ID)
		sb.WriteString("] ---\n")
		if n.Title != "" {
			sb.WriteString("Title: ")
			sb.WriteString(n.Title)
			sb.WriteString("\n")
		}
		content := []rune(n.Content)
		if len(content) > maxPromptContent {
			content = content[:maxPromptContent]
		}
		sb.WriteString("Content: ")
		sb.WriteString(string(content))
		sb.WriteString("\n")
		if !n.UpdatedAt.IsZero() {
			sb.WriteString("Updated: ")
			sb.WriteString(n.UpdatedAt.Format("2006-01-02"))
			sb.WriteString("\n")
		}
		if len(n.Labels) > 0 {
			sb.WriteString("Labels: ")
			sb.WriteString(strings.Join(n.Labels, ", "))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nReturn ONLY the JSON object.")
	return sb.String()
}
