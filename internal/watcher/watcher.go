// Package watcher provides debounced watching of a Keep export so briefs can
// be rebuilt when the export changes.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// DefaultDebounce is the time to wait after the last file event before
// triggering a callback. Takeout extraction writes many files at once.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches directories for changes to matching files and invokes a
// callback with debouncing.
type Watcher struct {
	fsw      *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	match    glob.Glob
	ignore   []string
	skip     []glob.Glob
	delay    time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.delay = d }
}

// WithMatch restricts events to files whose base name matches g.
func WithMatch(g glob.Glob) Option {
	return func(w *Watcher) { w.match = g }
}

// WithIgnore drops events for files whose base name matches any of the
// patterns, even when they pass WithMatch.
func WithIgnore(patterns ...string) Option {
	return func(w *Watcher) { w.ignore = append(w.ignore, patterns...) }
}

// New creates a Watcher that monitors the given directories.
// The callback is invoked (debounced) whenever a matching file changes.
func New(dirs []string, callback func(), opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, p := range dirs {
		if err := fsw.Add(p); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	w := &Watcher{
		fsw:      fsw,
		callback: callback,
		delay:    DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	for _, p := range w.ignore {
		g, err := glob.Compile(p)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("compiling ignore pattern %q: %w", p, err)
		}
		w.skip = append(w.skip, g)
	}
	return w, nil
}

// ForExport creates a Watcher for a Keep export path. A directory export is
// watched for *.json files; a single-file export is watched through its
// parent directory so editors that replace the file are still seen.
func ForExport(path string, callback func(), opts ...Option) (*Watcher, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}

	dir, pattern := path, "*.json"
	if !info.IsDir() {
		dir, pattern = filepath.Dir(path), glob.QuoteMeta(filepath.Base(path))
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling watch pattern: %w", err)
	}

	return New([]string{dir}, callback, append([]Option{WithMatch(g)}, opts...)...)
}

// Run starts the watch loop. It blocks until the context is canceled.
// Errors from the underlying watcher are passed to the optional errFn callback.
func (w *Watcher) Run(ctx context.Context, errFn func(error)) {
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !w.wants(filepath.Base(event.Name)) {
				continue
			}
			w.debounce()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if errFn != nil {
				errFn(err)
			}
		}
	}
}

func (w *Watcher) wants(name string) bool {
	if w.match != nil && !w.match.Match(name) {
		return false
	}
	for _, g := range w.skip {
		if g.Match(name) {
			return false
		}
	}
	return true
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) debounce() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.callback)
}
