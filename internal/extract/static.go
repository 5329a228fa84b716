package extract

import (
	"context"

	"github.com/twiced-technology-gmbh/keepbrief/internal/clierr"
	"github.com/twiced-technology-gmbh/keepbrief/internal/notes"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

// Static replays saved task records. Notes listed as failed in the file fail
// again; notes without records yield nothing.
type Static struct {
	byNote map[string]Output
	failed map[string]bool
}

// NewStatic builds a Static extractor from a saved task file.
func NewStatic(f *task.File) *Static {
	s := &Static{
		byNote: make(map[string]Output),
		failed: make(map[string]bool),
	}
	for _, t := range f.Tasks {
		out := s.byNote[t.SourceNoteID]
		out.Tasks = append(out.Tasks, t)
		s.byNote[t.SourceNoteID] = out
	}
	for _, it := range f.Ideas {
		out := s.byNote[it.SourceNoteID]
		out.Ideas = append(out.Ideas, it)
		s.byNote[it.SourceNoteID] = out
	}
	for _, it := range f.References {
		out := s.byNote[it.SourceNoteID]
		out.References = append(out.References, it)
		s.byNote[it.SourceNoteID] = out
	}
	for _, id := range f.FailedNotes {
		s.failed[id] = true
	}
	return s
}

// Extract implements Extractor.
func (s *Static) Extract(_ context.Context, note notes.Note) (Output, error) {
	if s.failed[note.ID] {
		return Output{}, clierr.Newf(clierr.ExtractionFailed, "extraction of note %s failed in the saved run", note.ID)
	}
	return s.byNote[note.ID], nil
}
