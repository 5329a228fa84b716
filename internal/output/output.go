// Package output handles formatting CLI output as table, JSON, compact, or
// markdown.
package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// EnvOutput selects the default format when no format flag is given.
const EnvOutput = "KEEPBRIEF_OUTPUT"

// Format represents an output format.
type Format int

const (
	// FormatAuto uses the default format (table).
	FormatAuto Format = iota
	// FormatJSON outputs JSON.
	FormatJSON
	// FormatTable outputs a human-readable table.
	FormatTable
	// FormatCompact outputs one-line-per-record compact format.
	FormatCompact
)

// Detect returns the appropriate format based on flags and environment.
// Default is table when no explicit format is set.
func Detect(jsonFlag, tableFlag, compactFlag bool) Format {
	if jsonFlag {
		return FormatJSON
	}
	if compactFlag {
		return FormatCompact
	}
	if tableFlag {
		return FormatTable
	}

	switch os.Getenv(EnvOutput) {
	case "json":
		return FormatJSON
	case "compact", "oneline":
		return FormatCompact
	case "table":
		return FormatTable
	}

	return FormatTable
}

// ConfigureColor turns styling off when requested, when NO_COLOR is set, or
// when stdout is not a terminal. It reports whether color stays enabled.
func ConfigureColor(noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stdout.Fd())) {
		DisableColor()
		return false
	}
	return true
}

// DisableColor strips all styling from rendered output.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
	colorEnabled = false
}
