package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/twiced-technology-gmbh/keepbrief/internal/clierr"
	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
	"github.com/twiced-technology-gmbh/keepbrief/internal/notes"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

var edited = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func makeNotes(n int) []notes.Note {
	out := make([]notes.Note, n)
	for i := range out {
		out[i] = notes.Note{
			ID:        fmt.Sprintf("note_%04d", i),
			Content:   fmt.Sprintf("content %d", i),
			UpdatedAt: edited,
		}
	}
	return out
}

// perNote extracts one task per note and fails the notes in fail.
type perNote struct {
	fail  map[string]bool
	calls atomic.Int32
}

func (p *perNote) Extract(_ context.Context, n notes.Note) (Output, error) {
	p.calls.Add(1)
	if p.fail[n.ID] {
		return Output{}, errors.New("boom")
	}
	return Output{Tasks: []task.Extracted{{Text: "do " + n.ID, Domain: "admin", SourceNoteID: n.ID}}}, nil
}

// batcher fails whole chunks that contain a note in fail.
type batcher struct {
	perNote
	batches atomic.Int32
}

func (b *batcher) ExtractBatch(ctx context.Context, batch []notes.Note) (map[string]Output, error) {
	b.batches.Add(1)
	out := make(map[string]Output)
	for _, n := range batch {
		if b.fail[n.ID] {
			return nil, errors.New("chunk failed")
		}
		if n.ID == "note_0002" {
			continue // no tasks for this note
		}
		o, _ := b.perNote.Extract(ctx, n)
		if n.ID == "note_0001" {
			o.Ideas = []task.Item{{Title: "idea from " + n.ID, SourceNoteID: n.ID}}
		}
		out[n.ID] = o
	}
	return out, nil
}

func TestRunPerNote(t *testing.T) {
	ex := &perNote{fail: map[string]bool{"note_0003": true}}
	res, err := Run(context.Background(), ex, makeNotes(7), Options{ChunkSize: 2, Concurrency: 3})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.NotesScanned != 7 {
		t.Errorf("NotesScanned = %d, want 7", res.NotesScanned)
	}
	if len(res.Tasks) != 6 {
		t.Fatalf("got %d tasks, want 6", len(res.Tasks))
	}
	for i := 1; i < len(res.Tasks); i++ {
		if res.Tasks[i-1].SourceNoteID >= res.Tasks[i].SourceNoteID {
			t.Errorf("tasks out of note order: %s before %s", res.Tasks[i-1].SourceNoteID, res.Tasks[i].SourceNoteID)
		}
	}
	if got := res.FailedNotes(); len(got) != 1 || got[0] != "note_0003" {
		t.Errorf("FailedNotes = %v", got)
	}
	if ex.calls.Load() != 7 {
		t.Errorf("Extract called %d times, want 7", ex.calls.Load())
	}
}

func TestRunBatch(t *testing.T) {
	ex := &batcher{perNote: perNote{fail: map[string]bool{"note_0005": true}}}
	res, err := Run(context.Background(), ex, makeNotes(6), Options{ChunkSize: 3, Concurrency: 2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if ex.batches.Load() != 2 {
		t.Errorf("ExtractBatch called %d times, want 2", ex.batches.Load())
	}
	// Chunk 1 (notes 0-2) succeeds with note 2 empty; chunk 2 (3-5) fails.
	if len(res.Tasks) != 2 {
		t.Errorf("got %d tasks, want 2", len(res.Tasks))
	}
	if len(res.Failures) != 3 {
		t.Errorf("got %d failures, want 3", len(res.Failures))
	}

	if len(res.Ideas) != 1 || res.Ideas[0].SourceNoteID != "note_0001" {
		t.Errorf("ideas = %+v", res.Ideas)
	}

	f := res.File()
	if f.NotesScanned != 6 || len(f.FailedNotes) != 3 || len(f.Ideas) != 1 {
		t.Errorf("File = %+v", f)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, &perNote{}, makeNotes(4), Options{ChunkSize: 1, Concurrency: 1}); !errors.Is(err, context.Canceled) {
		t.Errorf("Run on cancelled context = %v, want context.Canceled", err)
	}
}

func TestStatic(t *testing.T) {
	s := NewStatic(&task.File{
		Tasks: []task.Extracted{
			{Text: "a", SourceNoteID: "note_0000"},
			{Text: "b", SourceNoteID: "note_0000"},
			{Text: "c", SourceNoteID: "gone"},
		},
		Ideas:       []task.Item{{Title: "pottery class", SourceNoteID: "note_0002"}},
		References:  []task.Item{{Title: "bike lock", Content: "3141", SourceNoteID: "note_0000"}},
		FailedNotes: []string{"note_0001"},
	})

	res, err := Run(context.Background(), s, makeNotes(3), Options{ChunkSize: 10})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Tasks) != 2 {
		t.Errorf("got %d tasks, want 2 (records of removed notes dropped)", len(res.Tasks))
	}
	if len(res.Failures) != 1 || !clierr.HasCode(res.Failures[0], clierr.ExtractionFailed) {
		t.Errorf("failures = %v", res.Failures)
	}
	if len(res.Ideas) != 1 || len(res.References) != 1 {
		t.Errorf("replayed ideas %+v, references %+v", res.Ideas, res.References)
	}
}

func chatServer(t *testing.T, status int, content string, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if seen != nil {
			if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
				t.Errorf("decoding request: %v", err)
			}
		}
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error": {"message": "rate limited"}}`))
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestOpenAI(t *testing.T, url string) *OpenAI {
	t.Helper()
	o, err := NewOpenAI("test-key", config.NewDefault(),
		WithURL(url),
		WithClock(func() time.Time { return edited }),
	)
	if err != nil {
		t.Fatalf("NewOpenAI failed: %v", err)
	}
	return o
}

func TestOpenAIExtractBatch(t *testing.T) {
	content := "```json\n" + `{
  "tasks": [
    {"task": "File tax return", "domain": "Finance", "urgency_words": ["deadline", "deadline", " "],
     "deadline": "2026-03-04", "source_note_ids": ["note_0000"]},
    {"task": "Repot ferns", "domain": "gardening", "deadline": "next spring", "source_note_ids": ["note_0001"]},
    {"task": "Ghost", "domain": "admin", "source_note_ids": ["note_9999"]},
    {"task": "  ", "domain": "admin", "source_note_ids": ["note_0000"]}
  ],
  "ideas": [
    {"title": "Balcony herb garden", "content": "basil and thyme", "domain": "Personal Projects", "source_note_id": "note_0001"},
    {"title": "Lost idea", "source_note_id": "note_9999"}
  ],
  "references": [{"title": "Gym locker", "content": "code 4711", "domain": "health", "source_note_id": "note_0000"}],
  "vague": [{"source_note_id": "note_0002", "reason": "just a word"}]
}` + "\n```"

	var req chatRequest
	srv := chatServer(t, http.StatusOK, content, &req)
	o := newTestOpenAI(t, srv.URL)

	batch := makeNotes(3)
	byNote, err := o.ExtractBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("ExtractBatch failed: %v", err)
	}

	if req.Model != config.DefaultModel || req.ResponseFormat.Type != "json_object" {
		t.Errorf("request = model %q format %q", req.Model, req.ResponseFormat.Type)
	}
	if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "NOTE [note_0001]") {
		t.Errorf("user prompt does not list the notes")
	}
	if !strings.Contains(req.Messages[0].Content, "- personal_projects") {
		t.Errorf("system prompt does not list the domains")
	}

	tax := byNote["note_0000"].Tasks
	if len(tax) != 1 {
		t.Fatalf("note_0000 tasks = %+v", tax)
	}
	if tax[0].Domain != "finance" || tax[0].Deadline == nil || tax[0].Deadline.String() != "2026-03-04" {
		t.Errorf("tax task = %+v", tax[0])
	}
	if len(tax[0].UrgencyKeywords) != 1 {
		t.Errorf("urgency keywords not cleaned: %q", tax[0].UrgencyKeywords)
	}
	if !tax[0].LastEdited.Equal(edited) {
		t.Errorf("LastEdited = %v, want note timestamp", tax[0].LastEdited)
	}

	ferns := byNote["note_0001"].Tasks
	if len(ferns) != 1 || ferns[0].Domain != task.Uncategorized || ferns[0].Deadline != nil {
		t.Errorf("ferns task = %+v", ferns)
	}

	ideas := byNote["note_0001"].Ideas
	wantIdea := task.Item{Title: "Balcony herb garden", Content: "basil and thyme", Domain: "personal_projects", SourceNoteID: "note_0001"}
	if len(ideas) != 1 || ideas[0] != wantIdea {
		t.Errorf("ideas = %+v, want [%+v]", ideas, wantIdea)
	}
	refs := byNote["note_0000"].References
	if len(refs) != 1 || refs[0].Content != "code 4711" || refs[0].Domain != "" {
		t.Errorf("references = %+v", refs)
	}
	if !strings.Contains(req.Messages[0].Content, `"references"`) {
		t.Errorf("system prompt does not ask for references")
	}

	vague := byNote["note_0002"].Tasks
	if len(vague) != 1 || !vague[0].IsVague || vague[0].Reason != "just a word" || vague[0].Snippet != "content 2" {
		t.Errorf("vague record = %+v", vague)
	}
	if _, ok := byNote["note_9999"]; ok {
		t.Error("task for unknown note was kept")
	}
}

func TestOpenAIErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		srv := chatServer(t, http.StatusTooManyRequests, "", nil)
		_, err := newTestOpenAI(t, srv.URL).Extract(context.Background(), makeNotes(1)[0])
		if !clierr.HasCode(err, clierr.ExtractionFailed) {
			t.Errorf("err = %v, want EXTRACTION_FAILED", err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		srv := chatServer(t, http.StatusOK, "Sure! Here are your tasks.", nil)
		_, err := newTestOpenAI(t, srv.URL).Extract(context.Background(), makeNotes(1)[0])
		if !clierr.HasCode(err, clierr.ExtractionFailed) {
			t.Errorf("err = %v, want EXTRACTION_FAILED", err)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		if _, err := NewOpenAI("", config.NewDefault()); !clierr.HasCode(err, clierr.InvalidInput) {
			t.Errorf("err = %v, want INVALID_INPUT", err)
		}
	})
}

func TestRunWithOpenAIFailureContinues(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": `{"tasks": [], "vague": []}`}}},
		})
	}))
	defer srv.Close()

	res, err := Run(context.Background(), newTestOpenAI(t, srv.URL), makeNotes(4), Options{ChunkSize: 2, Concurrency: 1})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Failures) != 2 {
		t.Errorf("failures = %d, want 2 (first chunk)", len(res.Failures))
	}
	if calls.Load() != 2 {
		t.Errorf("API called %d times, want 2", calls.Load())
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	got := truncate("naïve café", 3)
	if got != "naï..." {
		t.Errorf("truncate = %q, want %q", got, "naï...")
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q, want unchanged", got)
	}
}
