package task

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/twiced-technology-gmbh/keepbrief/internal/clierr"
	"github.com/twiced-technology-gmbh/keepbrief/internal/date"
)

func TestNewBreakdownTotal(t *testing.T) {
	b := NewBreakdown(60, 22, 7)
	if b.Total != 89 {
		t.Errorf("Total = %d, want 89", b.Total)
	}
}

func TestWithRankCopies(t *testing.T) {
	s := Scored{Extracted: Extracted{Text: "a"}}
	ranked := s.WithRank(3)
	if ranked.Rank != 3 || s.Rank != 0 {
		t.Errorf("WithRank mutated original or failed: original %d, copy %d", s.Rank, ranked.Rank)
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := map[string]string{
		"Finance":            "finance",
		" personal projects": "personal_projects",
		"personal-projects":  "personal_projects",
		"uncategorised":      Uncategorized,
		"":                   Uncategorized,
		"Other":              Uncategorized,
	}
	for in, want := range tests {
		if got := NormalizeDomain(in); got != want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateScorable(t *testing.T) {
	tests := []struct {
		name    string
		task    Extracted
		wantErr bool
	}{
		{"valid", Extracted{Text: "Pay rent", Domain: "finance"}, false},
		{"vague", Extracted{Text: "stuff", IsVague: true}, true},
		{"empty text", Extracted{Domain: "finance"}, true},
		{"blank text", Extracted{Text: " \t\n ", Domain: "finance"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScorable(tt.task)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateScorable() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !clierr.HasCode(err, clierr.InvalidInput) {
				t.Errorf("error code is not %s: %v", clierr.InvalidInput, err)
			}
		})
	}
}

func TestValidateDomain(t *testing.T) {
	allowed := []string{"health", "finance"}
	if err := ValidateDomain("finance", allowed); err != nil {
		t.Errorf("finance rejected: %v", err)
	}
	if err := ValidateDomain(Uncategorized, allowed); err != nil {
		t.Errorf("uncategorized rejected: %v", err)
	}
	if err := ValidateDomain("gardening", allowed); !clierr.HasCode(err, clierr.InvalidInput) {
		t.Errorf("gardening = %v, want INVALID_INPUT", err)
	}
}

func TestWriteReadFileRoundTrip(t *testing.T) {
	deadline := date.New(2026, time.March, 4)
	edited := time.Date(2026, time.February, 20, 9, 30, 0, 0, time.UTC)
	in := &File{
		NotesScanned: 3,
		FailedNotes:  []string{"note_0003"},
		Tasks: []Extracted{
			{
				Text:            "File tax return",
				Domain:          "finance",
				Deadline:        &deadline,
				UrgencyKeywords: []string{"deadline"},
				LastEdited:      edited,
				SourceNoteID:    "note_0001",
			},
			{
				Text:         "thoughts",
				Domain:       Uncategorized,
				IsVague:      true,
				SourceNoteID: "note_0002",
				Snippet:      "thoughts about",
				Reason:       "no action",
			},
		},
		Ideas:      []Item{{Title: "Garden pizza oven", Content: "clay dome", Domain: "personal_projects", SourceNoteID: "note_0004"}},
		References: []Item{{Title: "Wifi at mum's", Content: "hunter2", SourceNoteID: "note_0005"}},
	}

	for _, name := range []string{"tasks.json", "tasks.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := WriteFile(path, in); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			out, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}
			if out.NotesScanned != 3 || len(out.FailedNotes) != 1 {
				t.Errorf("counters = %d/%v", out.NotesScanned, out.FailedNotes)
			}
			if len(out.Tasks) != 2 {
				t.Fatalf("got %d tasks, want 2", len(out.Tasks))
			}
			got := out.Tasks[0]
			if got.Deadline == nil || got.Deadline.String() != "2026-03-04" {
				t.Errorf("Deadline = %v", got.Deadline)
			}
			if !got.LastEdited.Equal(edited) {
				t.Errorf("LastEdited = %v, want %v", got.LastEdited, edited)
			}
			if !out.Tasks[1].IsVague || out.Tasks[1].Reason != "no action" {
				t.Errorf("vague record = %+v", out.Tasks[1])
			}
			if len(out.Ideas) != 1 || out.Ideas[0] != in.Ideas[0] {
				t.Errorf("ideas = %+v", out.Ideas)
			}
			if len(out.References) != 1 || out.References[0] != in.References[0] {
				t.Errorf("references = %+v", out.References)
			}
		})
	}
}

func TestReadFileBareList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	data := `[
  {"task": "Book dentist appointment", "domain": "Health", "source_note_id": "n1", "last_edited": "2026-02-01"},
  {"text": "Call mum", "domain": "relationships", "source_note_id": "n2"},
  {"text": "Call mum again", "domain": "relationships", "source_note_id": "n2"}
]`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	f, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if f.NotesScanned != 2 {
		t.Errorf("NotesScanned = %d, want 2 distinct notes", f.NotesScanned)
	}
	if f.Tasks[0].Text != "Book dentist appointment" || f.Tasks[0].Domain != "health" {
		t.Errorf("first task = %+v", f.Tasks[0])
	}
	if f.Tasks[0].LastEdited.Day() != 1 {
		t.Errorf("date-only last_edited not parsed: %v", f.Tasks[0].LastEdited)
	}
}

func TestReadFileItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	data := `{
  "tasks": [{"text": "Renew passport", "domain": "admin", "source_note_id": "n1"}],
  "ideas": [{"title": "  Podcast about maps ", "domain": "Personal Projects", "source_note_id": "n2"}, {"title": " "}],
  "references": [{"title": "Locker code", "content": "4711", "source_note_id": "n3"}]
}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	f, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(f.Ideas) != 1 || f.Ideas[0].Title != "Podcast about maps" || f.Ideas[0].Domain != "personal_projects" {
		t.Errorf("ideas = %+v", f.Ideas)
	}
	if len(f.References) != 1 || f.References[0].Content != "4711" {
		t.Errorf("references = %+v", f.References)
	}
	if f.NotesScanned != 3 {
		t.Errorf("NotesScanned = %d, want 3 (task, idea and reference notes)", f.NotesScanned)
	}
}

func TestReadFileErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"tasks": [{"text": "x", "deadline": "next friday"}]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(bad); !clierr.HasCode(err, clierr.InvalidInput) {
		t.Errorf("bad deadline = %v, want INVALID_INPUT", err)
	}

	garbage := filepath.Join(dir, "garbage.json")
	if err := os.WriteFile(garbage, []byte(`{not json`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(garbage); !clierr.HasCode(err, clierr.InvalidInput) {
		t.Errorf("garbage = %v, want INVALID_INPUT", err)
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
