// Package archive keeps an audit trail of brief runs: the full analysis of
// the latest run and a bounded log of run summaries. Nothing here is read
// back into a brief.
package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/keepbrief/internal/brief"
	"github.com/twiced-technology-gmbh/keepbrief/internal/filelock"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

const (
	// AnalysisFileName holds the full analysis of the latest run.
	AnalysisFileName = "keep_analysis.json"
	// LogFileName is the run log, one JSON object per line.
	LogFileName = "activity.jsonl"

	lockFileName  = ".archive.lock"
	fileMode      = 0o600
	dirMode       = 0o750
	maxLogEntries = 1000 // truncate oldest entries when log exceeds this size
)

// FilePatterns returns glob patterns for every file the archive writes,
// temp files included, so watchers and loaders sharing the directory can
// skip them.
func FilePatterns() []string {
	return []string{AnalysisFileName, AnalysisFileName + ".*", LogFileName, lockFileName}
}

// Analysis is the full record of one run.
type Analysis struct {
	Brief       brief.Brief   `json:"brief"`
	Tasks       []task.Scored `json:"tasks"`
	Ideas       []task.Item   `json:"ideas"`
	References  []task.Item   `json:"references"`
	FailedNotes []string      `json:"failed_notes,omitempty"`
}

// RunEntry is one line of the run log.
type RunEntry struct {
	Timestamp time.Time     `json:"timestamp"`
	RunID     string        `json:"run_id"`
	Command   string        `json:"command"`
	Source    string        `json:"source,omitempty"`
	Summary   brief.Summary `json:"summary"`
	Notified  bool          `json:"notified"`
}

// Archive writes run artifacts into a directory.
type Archive struct {
	dir string
}

// New returns an Archive rooted at dir. The directory is created on first
// write.
func New(dir string) *Archive {
	return &Archive{dir: dir}
}

// Dir returns the archive directory.
func (a *Archive) Dir() string { return a.dir }

// AnalysisPath returns the path of the analysis file.
func (a *Archive) AnalysisPath() string { return filepath.Join(a.dir, AnalysisFileName) }

// LogPath returns the path of the run log.
func (a *Archive) LogPath() string { return filepath.Join(a.dir, LogFileName) }

// Record writes the analysis of b and appends entry to the run log while
// holding the archive lock.
func (a *Archive) Record(ctx context.Context, b brief.Brief, failedNotes []string, entry RunEntry) error {
	unlock, err := a.lock(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	if err := a.writeAnalysis(b, failedNotes); err != nil {
		return err
	}
	return a.appendRun(entry)
}

func (a *Archive) lock(ctx context.Context) (func() error, error) {
	if err := os.MkdirAll(a.dir, dirMode); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	unlock, err := filelock.Lock(ctx, filepath.Join(a.dir, lockFileName))
	if err != nil {
		return nil, fmt.Errorf("locking archive: %w", err)
	}
	return unlock, nil
}

// writeAnalysis replaces the analysis file through a temp file and rename.
func (a *Archive) writeAnalysis(b brief.Brief, failedNotes []string) error {
	tasks := b.Ranked
	if tasks == nil {
		tasks = []task.Scored{}
	}
	data, err := json.MarshalIndent(Analysis{
		Brief:       b,
		Tasks:       tasks,
		Ideas:       nonNil(b.Ideas),
		References:  nonNil(b.References),
		FailedNotes: failedNotes,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling analysis: %w", err)
	}

	tmp, err := os.CreateTemp(a.dir, AnalysisFileName+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing analysis: %w", err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting analysis mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing analysis: %w", err)
	}
	if err := os.Rename(tmp.Name(), a.AnalysisPath()); err != nil {
		return fmt.Errorf("replacing analysis: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// appendRun appends entry to the run log. If the log exceeds maxLogEntries,
// the oldest entries are truncated.
func (a *Archive) appendRun(entry RunEntry) error {
	path := a.LogPath()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, fileMode) //nolint:gosec // log path from trusted archive dir
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling log entry: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing log entry: %w", err)
	}

	// Truncate if needed (best-effort; errors are non-fatal).
	_ = truncateLogIfNeeded(path, maxLogEntries)

	return nil
}

// truncateLogIfNeeded rewrites the log keeping only the most recent limit
// entries.
func truncateLogIfNeeded(path string, limit int) error {
	f, err := os.Open(path) //nolint:gosec // trusted path
	if err != nil {
		return err
	}

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) //nolint:mnd // run entries are small
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	_ = f.Close()

	if err := scanner.Err(); err != nil {
		return err
	}

	if len(lines) <= limit {
		return nil
	}

	lines = lines[len(lines)-limit:]

	var buf strings.Builder
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	return os.WriteFile(path, []byte(buf.String()), fileMode)
}

// NewRunEntry builds the log entry for a composed brief.
func NewRunEntry(b brief.Brief, command, source string, notified bool) RunEntry {
	return RunEntry{
		Timestamp: time.Now(),
		RunID:     b.RunID,
		Command:   command,
		Source:    source,
		Summary:   b.Summary,
		Notified:  notified,
	}
}
