package task

import (
	"strings"

	"github.com/twiced-technology-gmbh/keepbrief/internal/clierr"
)

// ValidateScorable returns an InvalidInput error if t cannot be scored:
// vague tasks and tasks without text are out of contract.
func ValidateScorable(t Extracted) error {
	if t.IsVague {
		return ValidateVague(t.SourceNoteID)
	}
	if strings.TrimSpace(t.Text) == "" {
		return clierr.Newf(clierr.InvalidInput, "task from note %q has no text", t.SourceNoteID).
			WithDetails(map[string]any{"source_note_id": t.SourceNoteID})
	}
	return nil
}

// ValidateVague returns a CLIError for an attempt to score a vague task.
func ValidateVague(noteID string) *clierr.Error {
	return clierr.Newf(clierr.InvalidInput, "task from note %q is vague and cannot be scored", noteID).
		WithDetails(map[string]any{"source_note_id": noteID})
}

// ValidateDomain checks that a domain is in the allowed list or uncategorized.
func ValidateDomain(domain string, allowed []string) error {
	if domain == Uncategorized {
		return nil
	}
	for _, d := range allowed {
		if d == domain {
			return nil
		}
	}
	return clierr.Newf(clierr.InvalidInput, "unknown domain %q", domain).
		WithDetails(map[string]any{
			"domain":  domain,
			"allowed": allowed,
		})
}

// ValidateDate returns a CLIError for invalid date input.
func ValidateDate(field, input string, err error) *clierr.Error {
	return clierr.Newf(clierr.InvalidInput, "invalid %s date: %v", field, err).
		WithDetails(map[string]any{
			"field": field,
			"input": input,
		})
}
