// Package logging provides structured logging for keepbrief runs.
// It wraps log/slog with a JSON handler so every line of a run can be
// filtered by run ID and pipeline phase after the fact.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log levels supported by the logger.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// FileName is the log file created inside the output directory.
const FileName = "keepbrief.log"

// Logger provides structured logging with persistent attributes.
// It is safe for concurrent use; child loggers share the parent's sink.
type Logger struct {
	logger *slog.Logger
	sink   *sink
}

// sink owns the log file so that Close on any child closes it once.
type sink struct {
	mu   sync.Mutex
	file *os.File
}

// NewLogger creates a Logger writing JSON lines to {dir}/keepbrief.log.
// If dir is empty, logs go to stderr. Unknown levels fall back to INFO.
func NewLogger(dir, level string) (*Logger, error) {
	var w io.Writer = os.Stderr
	s := &sink{}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // path from trusted output dir
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		s.file = f
		w = f
	}

	return newLogger(w, level, s), nil
}

// New creates a Logger writing JSON lines to w.
func New(w io.Writer, level string) *Logger {
	return newLogger(w, level, &sink{})
}

// NopLogger returns a Logger that discards all output.
func NopLogger() *Logger {
	return New(io.Discard, LevelError)
}

func newLogger(w io.Writer, level string, s *sink) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevel(level)})
	return &Logger{logger: slog.New(h), sink: s}
}

func slogLevel(level string) slog.Level {
	switch ParseLevel(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel normalizes a level string, returning LevelInfo if unrecognized.
func ParseLevel(level string) string {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "WARNING":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// ValidLevels returns the list of valid log level strings.
func ValidLevels() []string {
	return []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
}

// WithRun returns a child logger tagging every entry with the run ID.
func (l *Logger) WithRun(runID string) *Logger {
	return l.With("run_id", runID)
}

// WithPhase returns a child logger tagging every entry with a pipeline phase
// such as "load", "extract", "score", "dedupe", "balance" or "compose".
func (l *Logger) WithPhase(phase string) *Logger {
	return l.With("phase", phase)
}

// With returns a child logger with alternating key-value attributes.
func (l *Logger) With(args ...any) *Logger {
	if l == nil || len(args) == 0 {
		return l
	}
	return &Logger{logger: l.logger.With(args...), sink: l.sink}
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

// Info logs at INFO level.
func (l *Logger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

// Warn logs at WARN level.
func (l *Logger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

// Error logs at ERROR level.
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Log(context.Background(), level, msg, args...)
}

// Close syncs and closes the log file. No-op for stderr or discard loggers.
func (l *Logger) Close() error {
	if l == nil || l.sink == nil {
		return nil
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.file == nil {
		return nil
	}
	if err := l.sink.file.Sync(); err != nil {
		return fmt.Errorf("syncing log file: %w", err)
	}
	if err := l.sink.file.Close(); err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	l.sink.file = nil
	return nil
}
