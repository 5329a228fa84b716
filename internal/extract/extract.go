// Package extract turns notes into task records through an extraction
// service. The pipeline depends only on the Extractor interface; OpenAI and
// Static are the two implementations shipped here.
package extract

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/twiced-technology-gmbh/keepbrief/internal/logging"
	"github.com/twiced-technology-gmbh/keepbrief/internal/notes"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

// Output is what one note yields: task records (vague ones included) plus
// ideas and references, which are kept but never scored.
type Output struct {
	Tasks      []task.Extracted
	Ideas      []task.Item
	References []task.Item
}

// Extractor extracts the findings of one note. An error means the note could
// not be processed; it contributes nothing.
type Extractor interface {
	Extract(ctx context.Context, note notes.Note) (Output, error)
}

// BatchExtractor extracts a whole chunk of notes in one call. Results are
// keyed by note ID; notes missing from the map produced nothing.
type BatchExtractor interface {
	Extractor
	ExtractBatch(ctx context.Context, batch []notes.Note) (map[string]Output, error)
}

// Failure records a note whose extraction failed.
type Failure struct {
	NoteID string
	Err    error
}

// Error implements the error interface.
func (f Failure) Error() string {
	return fmt.Sprintf("note %s: %v", f.NoteID, f.Err)
}

// Unwrap returns the underlying error.
func (f Failure) Unwrap() error { return f.Err }

// Result is the outcome of extracting a set of notes.
type Result struct {
	NotesScanned int
	Tasks        []task.Extracted
	Ideas        []task.Item
	References   []task.Item
	Failures     []Failure
}

// FailedNotes returns the IDs of notes whose extraction failed.
func (r Result) FailedNotes() []string {
	ids := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		ids[i] = f.NoteID
	}
	return ids
}

// File converts the result into a task file for saving.
func (r Result) File() *task.File {
	return &task.File{
		NotesScanned: r.NotesScanned,
		FailedNotes:  r.FailedNotes(),
		Tasks:        r.Tasks,
		Ideas:        r.Ideas,
		References:   r.References,
	}
}

// Options controls Run.
type Options struct {
	// ChunkSize is the number of notes per extraction call.
	ChunkSize int
	// Concurrency is the number of chunks processed at once.
	Concurrency int
	Logger      *logging.Logger
}

type chunkResult struct {
	index    int
	out      Output
	failures []Failure
}

func (o *Output) add(more Output) {
	o.Tasks = append(o.Tasks, more.Tasks...)
	o.Ideas = append(o.Ideas, more.Ideas...)
	o.References = append(o.References, more.References...)
}

// Run extracts every note, chunk by chunk, with at most opts.Concurrency
// chunks in flight. A failing note or chunk is recorded as a Failure and the
// run continues. Results keep note order. Only cancellation of ctx aborts
// the run.
func Run(ctx context.Context, ex Extractor, ns []notes.Note, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NopLogger()
	}
	log = log.WithPhase("extract")

	chunks := notes.Chunk(ns, opts.ChunkSize)
	start := time.Now()

	p := pool.NewWithResults[chunkResult]().
		WithContext(ctx).
		WithMaxGoroutines(max(opts.Concurrency, 1))
	for i, chunk := range chunks {
		p.Go(func(ctx context.Context) (chunkResult, error) {
			return extractChunk(ctx, ex, i, chunk, log)
		})
	}
	results, err := p.Wait()
	if err != nil {
		return Result{}, err
	}
	slices.SortFunc(results, func(a, b chunkResult) int { return a.index - b.index })

	res := Result{NotesScanned: len(ns)}
	for _, r := range results {
		res.Tasks = append(res.Tasks, r.out.Tasks...)
		res.Ideas = append(res.Ideas, r.out.Ideas...)
		res.References = append(res.References, r.out.References...)
		res.Failures = append(res.Failures, r.failures...)
	}

	log.Debug("extraction finished",
		"chunks", len(chunks),
		"tasks", len(res.Tasks),
		"ideas", len(res.Ideas),
		"references", len(res.References),
		"failures", len(res.Failures),
		"elapsed", time.Since(start).String())
	return res, nil
}

func extractChunk(ctx context.Context, ex Extractor, index int, chunk []notes.Note, log *logging.Logger) (chunkResult, error) {
	if err := ctx.Err(); err != nil {
		return chunkResult{}, err
	}
	r := chunkResult{index: index}
	log.Debug("extracting chunk", "chunk", index+1, "notes", len(chunk))

	if batch, ok := ex.(BatchExtractor); ok {
		byNote, err := batch.ExtractBatch(ctx, chunk)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return chunkResult{}, ctxErr
			}
			log.Warn("chunk extraction failed", "chunk", index+1, "notes", len(chunk), "error", err.Error())
			for _, n := range chunk {
				r.failures = append(r.failures, Failure{NoteID: n.ID, Err: err})
			}
			return r, nil
		}
		for _, n := range chunk {
			r.out.add(byNote[n.ID])
		}
		return r, nil
	}

	for _, n := range chunk {
		out, err := ex.Extract(ctx, n)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return chunkResult{}, ctxErr
			}
			log.Warn("note extraction failed", "note_id", n.ID, "error", err.Error())
			r.failures = append(r.failures, Failure{NoteID: n.ID, Err: err})
			continue
		}
		r.out.add(out)
	}
	return r, nil
}
