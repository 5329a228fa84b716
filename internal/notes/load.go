package notes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/twiced-technology-gmbh/keepbrief/internal/clierr"
	"github.com/twiced-technology-gmbh/keepbrief/internal/logging"
)

// Options controls which notes Load keeps.
type Options struct {
	// ExcludeLabels are glob patterns; notes with a matching label are dropped.
	ExcludeLabels []string
	// IncludeArchived keeps archived notes.
	IncludeArchived bool
	// SkipFiles are glob patterns for file names in a directory export that
	// are not notes.
	SkipFiles []string
	Logger          *logging.Logger
}

// rawNote is a note as written by Google Takeout. The ISO fields cover
// exports that were converted by other tools.
type rawNote struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	TextContent     string      `json:"textContent"`
	TextContentHTML string      `json:"textContentHtml"`
	ListContent     []listItem  `json:"listContent"`
	IsTrashed       bool        `json:"isTrashed"`
	IsArchived      bool        `json:"isArchived"`
	Labels          []rawLabel  `json:"labels"`
	CreatedUsec     json.Number `json:"createdTimestampUsec"`
	EditedUsec      json.Number `json:"userEditedTimestampUsec"`
	CreatedAt       string      `json:"created_at"`
	UpdatedAt       string      `json:"updated_at"`
}

type listItem struct {
	Text      string `json:"text"`
	IsChecked bool   `json:"isChecked"`
}

type rawLabel struct {
	Name string `json:"name"`
}

// Load reads a Takeout export: a single .json file holding one note or an
// array of notes, or a directory of per-note .json files read in name order.
// Malformed files in a directory are skipped with a warning. Empty and
// trashed notes are always dropped.
func Load(path string, opts Options) ([]Note, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NopLogger()
	}
	log = log.WithPhase("load")

	excludes, err := compileGlobs(opts.ExcludeLabels)
	if err != nil {
		return nil, err
	}

	skip, err := compileGlobs(opts.SkipFiles)
	if err != nil {
		return nil, err
	}

	raws, err := readRaw(path, skip, log)
	if err != nil {
		return nil, err
	}

	var out []Note
	for i, raw := range raws {
		n, ok := normalize(raw, i)
		if !ok {
			continue
		}
		if n.Archived && !opts.IncludeArchived {
			continue
		}
		if label, hit := matchLabel(n.Labels, excludes); hit {
			log.Debug("excluding note", "note_id", n.ID, "label", label)
			continue
		}
		out = append(out, n)
	}

	log.Info("notes loaded", "path", path, "raw", len(raws), "kept", len(out))
	return out, nil
}

func readRaw(path string, skip []glob.Glob, log *logging.Logger) ([]rawNote, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, clierr.Newf(clierr.NotesNotFound, "keep export not found: %s", path).
				WithDetails(map[string]any{"path": path})
		}
		return nil, fmt.Errorf("reading keep export: %w", err)
	}

	if !info.IsDir() {
		if !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil, clierr.Newf(clierr.NotesNotFound, "keep export must be a .json file or a directory: %s", path).
				WithDetails(map[string]any{"path": path})
		}
		data, err := os.ReadFile(path) //nolint:gosec // user-supplied export path
		if err != nil {
			return nil, fmt.Errorf("reading keep export: %w", err)
		}
		raws, err := decodeRaw(data)
		if err != nil {
			return nil, clierr.Newf(clierr.InvalidInput, "parsing %s: %v", path, err).
				WithDetails(map[string]any{"path": path})
		}
		return raws, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading keep export directory: %w", err)
	}
	var raws []rawNote
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		if matchName(e.Name(), skip) {
			log.Debug("skipping non-note file", "file", e.Name())
			continue
		}
		file := filepath.Join(path, e.Name())
		data, err := os.ReadFile(file) //nolint:gosec // file inside the export directory
		if err != nil {
			log.Warn("skipping unreadable file", "file", e.Name(), "error", err.Error())
			continue
		}
		decoded, err := decodeRaw(data)
		if err != nil {
			log.Warn("skipping malformed file", "file", e.Name(), "error", err.Error())
			continue
		}
		raws = append(raws, decoded...)
	}
	return raws, nil
}

func decodeRaw(data []byte) ([]rawNote, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []rawNote
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var one rawNote
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return nil, err
	}
	return []rawNote{one}, nil
}

// normalize converts a raw note. It reports false for trashed and empty notes.
func normalize(raw rawNote, index int) (Note, bool) {
	if raw.IsTrashed {
		return Note{}, false
	}

	var parts []string
	text := raw.TextContent
	if text == "" && raw.TextContentHTML != "" {
		text = htmlText(raw.TextContentHTML)
	}
	if text != "" {
		parts = append(parts, text)
	}
	for _, item := range raw.ListContent {
		prefix := "[ ]"
		if item.IsChecked {
			prefix = "[x]"
		}
		parts = append(parts, prefix+" "+item.Text)
	}

	n := Note{
		ID:       raw.ID,
		Title:    strings.TrimSpace(raw.Title),
		Content:  strings.TrimSpace(strings.Join(parts, "\n")),
		Archived: raw.IsArchived,
	}
	if n.Title == "" && n.Content == "" {
		return Note{}, false
	}
	if n.ID == "" {
		n.ID = fmt.Sprintf("note_%04d", index)
	}

	n.CreatedAt = firstTime(raw.CreatedUsec, raw.CreatedAt)
	n.UpdatedAt = firstTime(raw.EditedUsec, raw.UpdatedAt)
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}

	for _, l := range raw.Labels {
		if name := strings.TrimSpace(l.Name); name != "" {
			n.Labels = append(n.Labels, name)
		}
	}
	return n, true
}

// firstTime returns the epoch timestamp if set, else the parsed ISO string,
// else the zero time.
func firstTime(epoch json.Number, iso string) time.Time {
	if epoch != "" {
		if t, ok := parseEpoch(epoch); ok {
			return t
		}
	}
	if iso != "" {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, iso); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

// parseEpoch reads a Takeout timestamp. Takeout writes microseconds; values
// in milliseconds or seconds are recognized by magnitude.
func parseEpoch(n json.Number) (time.Time, bool) {
	v, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return time.Time{}, false
		}
		v = int64(f)
	}
	switch {
	case v > 1e15:
		return time.UnixMicro(v).UTC(), true
	case v > 1e12:
		return time.UnixMilli(v).UTC(), true
	case v > 0:
		return time.Unix(v, 0).UTC(), true
	}
	return time.Time{}, false
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, clierr.Newf(clierr.InvalidInput, "invalid label pattern %q: %v", p, err).
				WithDetails(map[string]any{"pattern": p})
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// matchLabel returns the first label matching any pattern, ignoring case.
func matchLabel(labels []string, globs []glob.Glob) (string, bool) {
	for _, l := range labels {
		lower := strings.ToLower(l)
		for _, g := range globs {
			if g.Match(lower) {
				return l, true
			}
		}
	}
	return "", false
}

// matchName reports whether a file name matches any pattern, ignoring case.
func matchName(name string, globs []glob.Glob) bool {
	lower := strings.ToLower(name)
	for _, g := range globs {
		if g.Match(lower) {
			return true
		}
	}
	return false
}
