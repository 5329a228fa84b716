package clierr

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{InvalidInput, 1},
		{NotifyFailed, 1},
		{InternalError, 2},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := New(tt.code, "x").ExitCode(); got != tt.want {
				t.Errorf("ExitCode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ExtractionFailed, cause, "extraction request failed")

	if err.Error() != "extraction request failed: connection refused" {
		t.Errorf("message = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error does not match its cause")
	}

	outer := fmt.Errorf("note_0001: %w", err)
	if !HasCode(outer, ExtractionFailed) {
		t.Error("HasCode lost the code through fmt.Errorf wrapping")
	}
	if HasCode(outer, InvalidInput) {
		t.Error("HasCode matched the wrong code")
	}
	if HasCode(cause, ExtractionFailed) {
		t.Error("HasCode matched a plain error")
	}
}

func TestWithDetails(t *testing.T) {
	err := Newf(NotesNotFound, "no notes found in %s", "Keep").WithDetails(map[string]any{"path": "Keep"})
	if err.Message != "no notes found in Keep" || err.Details["path"] != "Keep" {
		t.Errorf("err = %+v", err)
	}
}

func TestSilentError(t *testing.T) {
	var err error = &SilentError{Code: 3}
	if err.Error() != "exit 3" {
		t.Errorf("Error() = %q", err.Error())
	}
}
