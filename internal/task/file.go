package task

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/keepbrief/internal/clierr"
	"github.com/twiced-technology-gmbh/keepbrief/internal/date"
)

const fileMode = 0o600

// File is a saved extraction run: the records plus the counters the brief
// summary needs when the run is replayed.
type File struct {
	NotesScanned int         `yaml:"notes_scanned" json:"notes_scanned"`
	FailedNotes  []string    `yaml:"failed_notes,omitempty" json:"failed_notes,omitempty"`
	Tasks        []Extracted `yaml:"tasks" json:"tasks"`
	Ideas        []Item      `yaml:"ideas,omitempty" json:"ideas,omitempty"`
	References   []Item      `yaml:"references,omitempty" json:"references,omitempty"`
}

// record is the on-disk shape read from task files. Dates stay strings
// so that both YYYY-MM-DD and RFC 3339 forms are accepted.
type record struct {
	Text            string   `yaml:"text" json:"text"`
	Task            string   `yaml:"task" json:"task"`
	Domain          string   `yaml:"domain" json:"domain"`
	Deadline        string   `yaml:"deadline" json:"deadline"`
	UrgencyKeywords []string `yaml:"urgency_keywords" json:"urgency_keywords"`
	LastEdited      string   `yaml:"last_edited" json:"last_edited"`
	IsVague         bool     `yaml:"is_vague" json:"is_vague"`
	SourceNoteID    string   `yaml:"source_note_id" json:"source_note_id"`
	Snippet         string   `yaml:"snippet" json:"snippet"`
	Reason          string   `yaml:"reason" json:"reason"`
}

type fileRecord struct {
	NotesScanned int      `yaml:"notes_scanned" json:"notes_scanned"`
	FailedNotes  []string `yaml:"failed_notes" json:"failed_notes"`
	Tasks        []record `yaml:"tasks" json:"tasks"`
	Ideas        []Item   `yaml:"ideas" json:"ideas"`
	References   []Item   `yaml:"references" json:"references"`
}

// ReadFile parses a task file. JSON and YAML are accepted, either as an
// object with a "tasks" list or as a bare list of records. For bare lists
// NotesScanned is the number of distinct source notes.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // task path from trusted source
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}

	fr, err := decode(path, data)
	if err != nil {
		return nil, clierr.Newf(clierr.InvalidInput, "parsing %s: %v", path, err).
			WithDetails(map[string]any{"file": path})
	}

	f := &File{
		NotesScanned: fr.NotesScanned,
		FailedNotes:  fr.FailedNotes,
		Tasks:        make([]Extracted, 0, len(fr.Tasks)),
		Ideas:        cleanItems(fr.Ideas),
		References:   cleanItems(fr.References),
	}
	for i, r := range fr.Tasks {
		t, err := r.toExtracted()
		if err != nil {
			var e *clierr.Error
			if errors.As(err, &e) && e.Details != nil {
				e.Details["index"] = i
			}
			return nil, err
		}
		f.Tasks = append(f.Tasks, t)
	}
	if f.NotesScanned == 0 {
		f.NotesScanned = countNotes(f)
	}
	return f, nil
}

func decode(path string, data []byte) (*fileRecord, error) {
	var fr fileRecord
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &fr); err == nil {
			return &fr, nil
		}
		var list []record
		if err := yaml.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return &fileRecord{Tasks: list}, nil
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []record
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return &fileRecord{Tasks: list}, nil
	}
	if err := json.Unmarshal(trimmed, &fr); err != nil {
		return nil, err
	}
	return &fr, nil
}

func (r record) toExtracted() (Extracted, error) {
	t := Extracted{
		Text:            strings.TrimSpace(r.Text),
		Domain:          NormalizeDomain(r.Domain),
		UrgencyKeywords: r.UrgencyKeywords,
		IsVague:         r.IsVague,
		SourceNoteID:    r.SourceNoteID,
		Snippet:         r.Snippet,
		Reason:          r.Reason,
	}
	if t.Text == "" {
		t.Text = strings.TrimSpace(r.Task)
	}
	if r.Deadline != "" {
		d, err := date.Parse(r.Deadline)
		if err != nil {
			return Extracted{}, ValidateDate("deadline", r.Deadline, err)
		}
		t.Deadline = &d
	}
	if r.LastEdited != "" {
		ts, err := parseTimestamp(r.LastEdited)
		if err != nil {
			return Extracted{}, ValidateDate("last_edited", r.LastEdited, err)
		}
		t.LastEdited = ts
	}
	return t, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	d, err := date.Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return d.Time, nil
}

// cleanItems trims items and drops those with neither title nor content.
func cleanItems(items []Item) []Item {
	var out []Item
	for _, it := range items {
		it.Title = strings.TrimSpace(it.Title)
		it.Content = strings.TrimSpace(it.Content)
		if it.Title == "" && it.Content == "" {
			continue
		}
		if it.Domain != "" {
			it.Domain = NormalizeDomain(it.Domain)
		}
		out = append(out, it)
	}
	return out
}

func countNotes(f *File) int {
	seen := make(map[string]bool)
	for _, t := range f.Tasks {
		if t.SourceNoteID != "" {
			seen[t.SourceNoteID] = true
		}
	}
	for _, items := range [][]Item{f.Ideas, f.References} {
		for _, it := range items {
			if it.SourceNoteID != "" {
				seen[it.SourceNoteID] = true
			}
		}
	}
	for _, id := range f.FailedNotes {
		seen[id] = true
	}
	return len(seen)
}

// WriteFile serializes f as YAML or JSON depending on the path extension.
func WriteFile(path string, f *File) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(f)
	} else {
		data, err = json.MarshalIndent(f, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("marshaling tasks: %w", err)
	}
	return os.WriteFile(path, data, fileMode)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yml" || ext == ".yaml"
}
