package brief

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
	"github.com/twiced-technology-gmbh/keepbrief/internal/date"
	"github.com/twiced-technology-gmbh/keepbrief/internal/logging"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

var now = time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)

func fixedID() string { return "run-fixed" }

func newComposer(t *testing.T, cfg *config.Config, opts ...Option) *Composer {
	t.Helper()
	c, err := NewComposer(cfg, append([]Option{WithRunID(fixedID)}, opts...)...)
	if err != nil {
		t.Fatalf("NewComposer failed: %v", err)
	}
	return c
}

func inDays(n int) *date.Date {
	d := date.Of(now.AddDate(0, 0, n))
	return &d
}

func TestComposeScenarioTaxOverCareer(t *testing.T) {
	c := newComposer(t, config.NewDefault())
	in := Input{
		NotesScanned: 2,
		Tasks: []task.Extracted{
			{
				Text: "Update CV", Domain: "career",
				LastEdited: now.AddDate(0, 0, -1), SourceNoteID: "note_0002",
			},
			{
				Text: "File self-assessment tax return", Domain: "finance",
				Deadline: inDays(3), UrgencyKeywords: []string{"deadline"},
				LastEdited: now.AddDate(0, 0, -10), SourceNoteID: "note_0001",
			},
		},
	}

	b := c.Compose(in, now)
	if len(b.TopPriorities) != 2 {
		t.Fatalf("got %d priorities, want 2", len(b.TopPriorities))
	}
	top := b.TopPriorities[0]
	if top.SourceNoteID != "note_0001" || top.Rank != 1 {
		t.Errorf("top = %s rank %d, want note_0001 rank 1", top.SourceNoteID, top.Rank)
	}
	want := task.Breakdown{Urgency: 60, Impact: 22, Staleness: 7, Total: 89}
	if top.Score != want {
		t.Errorf("top score = %+v, want %+v", top.Score, want)
	}
	if b.TopPriorities[1].Rank != 2 {
		t.Errorf("second rank = %d, want 2", b.TopPriorities[1].Rank)
	}
	if b.RunID != "run-fixed" || !b.GeneratedAt.Equal(now) {
		t.Errorf("run metadata = %q %v", b.RunID, b.GeneratedAt)
	}
}

func TestComposeScenarioVagueCounts(t *testing.T) {
	c := newComposer(t, config.NewDefault())

	var tasks []task.Extracted
	for i := 1; i <= 12; i++ {
		id := fmt.Sprintf("note_%04d", i)
		if i == 4 || i == 9 {
			tasks = append(tasks, task.Extracted{
				IsVague: true, SourceNoteID: id, Domain: task.Uncategorized,
				Snippet: "hmm " + id, Reason: "no action",
			})
			continue
		}
		tasks = append(tasks, task.Extracted{
			Text: fmt.Sprintf("Task number %d", i), Domain: "admin", SourceNoteID: id,
			LastEdited: now.AddDate(0, 0, -i),
		})
	}

	b := c.Compose(Input{NotesScanned: 12, Tasks: tasks}, now)
	if b.Summary.NotesScanned != 12 {
		t.Errorf("notes_scanned = %d, want 12", b.Summary.NotesScanned)
	}
	if b.Summary.TasksExtracted != 10 {
		t.Errorf("tasks_extracted = %d, want 10", b.Summary.TasksExtracted)
	}
	if b.Summary.VagueNotes != 2 {
		t.Errorf("vague_notes = %d, want 2", b.Summary.VagueNotes)
	}
	if len(b.Vague) != 2 || b.Vague[0].SourceNoteID != "note_0004" {
		t.Errorf("vague preview = %+v", b.Vague)
	}
	if len(b.TopPriorities) != config.DefaultTopN {
		t.Errorf("top priorities = %d, want %d", len(b.TopPriorities), config.DefaultTopN)
	}
	if len(b.Ranked) != 10 {
		t.Errorf("ranked = %d, want 10", len(b.Ranked))
	}
}

func TestComposeScenarioDentistDuplicates(t *testing.T) {
	c := newComposer(t, config.NewDefault())
	b := c.Compose(Input{
		NotesScanned: 3,
		Tasks: []task.Extracted{
			{Text: "Book dentist appointment", Domain: "health", SourceNoteID: "n1"},
			{Text: "book dentist appt", Domain: "health", SourceNoteID: "n2"},
			{Text: "Renew passport", Domain: "admin", SourceNoteID: "n3"},
		},
	}, now)

	if b.Summary.DuplicateGroups != 1 || len(b.Duplicates) != 1 {
		t.Fatalf("duplicate_groups = %d (%d groups), want 1", b.Summary.DuplicateGroups, len(b.Duplicates))
	}
	if b.Duplicates[0].Size() != 2 {
		t.Errorf("group size = %d, want 2", b.Duplicates[0].Size())
	}
}

func TestComposeScenarioNeglected(t *testing.T) {
	cfg := config.NewDefault()
	cfg.DomainByName("relationships").MinTasks = 3

	c := newComposer(t, cfg)
	b := c.Compose(Input{
		Tasks: []task.Extracted{
			{Text: "Call grandma", Domain: "relationships", SourceNoteID: "n1"},
			{Text: "Renew passport", Domain: "admin", SourceNoteID: "n2"},
		},
	}, now)

	if len(b.Domains) != len(cfg.Domains) {
		t.Errorf("domains = %d, want %d", len(b.Domains), len(cfg.Domains))
	}
	var rel bool
	for _, s := range b.NeglectedDomains {
		if s.Domain == "admin" {
			t.Error("admin meets its threshold but is reported neglected")
		}
		if s.Domain == "relationships" && s.IsNeglected && s.TaskCount == 1 {
			rel = true
		}
	}
	if !rel {
		t.Errorf("relationships missing from neglected: %+v", b.NeglectedDomains)
	}
	if b.Summary.DomainsNeglected != len(b.NeglectedDomains) {
		t.Errorf("domains_neglected = %d, want %d", b.Summary.DomainsNeglected, len(b.NeglectedDomains))
	}
}

func TestComposeSkipsInvalidTasks(t *testing.T) {
	cfg := config.NewDefault()
	cfg.StrictDomains = true

	var buf bytes.Buffer
	c := newComposer(t, cfg, WithLogger(logging.New(&buf, logging.LevelWarn)))
	b := c.Compose(Input{
		NotesScanned: 4,
		Tasks: []task.Extracted{
			{Text: "Pay rent", Domain: "finance", SourceNoteID: "n1"},
			{Text: "Paint the shed", Domain: "gardening", SourceNoteID: "n2"},
			{Text: "", Domain: "admin", SourceNoteID: "n3"},
		},
		FailedNotes: []string{"n4"},
	}, now)

	if b.Summary.TasksSkipped != 2 {
		t.Errorf("tasks_skipped = %d, want 2", b.Summary.TasksSkipped)
	}
	if b.Summary.TasksExtracted != 3 {
		t.Errorf("tasks_extracted = %d, want 3", b.Summary.TasksExtracted)
	}
	if b.Summary.ExtractionFailures != 1 || b.Summary.VagueNotes != 1 {
		t.Errorf("failures %d, vague %d; want 1 and 1", b.Summary.ExtractionFailures, b.Summary.VagueNotes)
	}
	if len(b.TopPriorities) != 1 {
		t.Errorf("top priorities = %d, want 1", len(b.TopPriorities))
	}
	if got := strings.Count(buf.String(), "skipping task"); got != 2 {
		t.Errorf("logged %d skip warnings, want 2", got)
	}
	if !strings.Contains(buf.String(), `"run_id":"run-fixed"`) {
		t.Error("warnings do not carry the run ID")
	}
}

func TestComposeSkipsBlankText(t *testing.T) {
	c := newComposer(t, config.NewDefault())
	b := c.Compose(Input{
		NotesScanned: 2,
		Tasks: []task.Extracted{
			{Text: "Pay rent", Domain: "finance", SourceNoteID: "n1"},
			{Text: " \t\n", Domain: "admin", SourceNoteID: "n2"},
		},
	}, now)

	if b.Summary.TasksSkipped != 1 {
		t.Errorf("tasks_skipped = %d, want 1", b.Summary.TasksSkipped)
	}
	if len(b.Ranked) != 1 || b.Ranked[0].Text != "Pay rent" {
		t.Errorf("ranked = %+v", b.Ranked)
	}
}

func TestComposeCarriesIdeasAndReferences(t *testing.T) {
	c := newComposer(t, config.NewDefault())
	in := Input{
		NotesScanned: 2,
		Ideas: []task.Item{
			{Title: "Balcony herb garden", Content: "basil and thyme", Domain: "personal_projects", SourceNoteID: "n1"},
			{Title: "Podcast about maps", SourceNoteID: "n1"},
		},
		References: []task.Item{{Title: "Bike lock", Content: "code 4711", SourceNoteID: "n2"}},
	}
	b := c.Compose(in, now)

	if b.Summary.IdeasExtracted != 2 || b.Summary.References != 1 {
		t.Errorf("ideas_extracted %d, references %d; want 2 and 1", b.Summary.IdeasExtracted, b.Summary.References)
	}
	if !reflect.DeepEqual(b.Ideas, in.Ideas) || !reflect.DeepEqual(b.References, in.References) {
		t.Errorf("ideas %+v, references %+v", b.Ideas, b.References)
	}
	if b.Summary.TasksExtracted != 0 || len(b.TopPriorities) != 0 {
		t.Error("ideas must not be scored as tasks")
	}
}

func TestComposeEmptyInput(t *testing.T) {
	c := newComposer(t, config.NewDefault())
	b := c.Compose(Input{}, now)
	if b.TopPriorities == nil || b.Duplicates == nil || b.NeglectedDomains == nil {
		t.Error("empty sections should be empty slices, not nil")
	}
	if len(b.NeglectedDomains) != len(config.DefaultDomains) {
		t.Errorf("neglected = %d, want every domain", len(b.NeglectedDomains))
	}
}

func TestRankOrder(t *testing.T) {
	mk := func(id, text, domain string, total int, deadline *date.Date) task.Scored {
		return task.Scored{
			Extracted: task.Extracted{Text: text, Domain: domain, Deadline: deadline, SourceNoteID: id},
			Score:     task.Breakdown{Total: total},
		}
	}
	in := []task.Scored{
		mk("e", "Walk dog", "health", 30, nil),
		mk("d", "Alpha", "admin", 30, nil),
		mk("c", "Zulu", "admin", 30, inDays(10)),
		mk("b", "Zulu", "admin", 30, inDays(2)),
		mk("a", "Top", "finance", 90, nil),
		mk("f", "Alpha", "admin", 30, nil),
	}

	ranked := Rank(in)
	want := []string{"a", "b", "c", "d", "f", "e"}
	for i, id := range want {
		if ranked[i].SourceNoteID != id {
			t.Errorf("ranked[%d] = %s, want %s", i, ranked[i].SourceNoteID, id)
		}
		if ranked[i].Rank != i+1 {
			t.Errorf("ranked[%d].Rank = %d, want %d", i, ranked[i].Rank, i+1)
		}
	}
	if in[0].Rank != 0 {
		t.Error("Rank modified its input")
	}
	if got := Top(ranked, 3); len(got) != 3 {
		t.Errorf("Top(3) = %d", len(got))
	}
	if got := Top(ranked, 100); len(got) != len(ranked) {
		t.Errorf("Top(100) = %d", len(got))
	}
}

func TestComposeDeterministic(t *testing.T) {
	c := newComposer(t, config.NewDefault())
	tasks := []task.Extracted{
		{Text: "Book dentist appointment", Domain: "health", SourceNoteID: "n1", LastEdited: now.AddDate(0, 0, -3)},
		{Text: "book dentist appt", Domain: "health", SourceNoteID: "n2", LastEdited: now.AddDate(0, 0, -3)},
		{Text: "Pay rent", Domain: "finance", SourceNoteID: "n3", UrgencyKeywords: []string{"due"}},
		{Text: "Email landlord", Domain: "admin", SourceNoteID: "n4", Deadline: inDays(1)},
		{Text: "Learn Go generics", Domain: "learning", SourceNoteID: "n5"},
		{Text: "Call mum", Domain: "relationships", SourceNoteID: "n6"},
	}
	first := c.Compose(Input{NotesScanned: 6, Tasks: tasks}, now)

	reversed := make([]task.Extracted, len(tasks))
	for i, tk := range tasks {
		reversed[len(tasks)-1-i] = tk
	}
	second := c.Compose(Input{NotesScanned: 6, Tasks: reversed}, now)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("composition depends on input order:\n%+v\n%+v", first.TopPriorities, second.TopPriorities)
	}
}
