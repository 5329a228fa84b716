// Package clierr defines the structured errors keepbrief commands return.
// Each carries a stable code for JSON consumers and scripts.
package clierr

import (
	"errors"
	"fmt"
	"strconv"
)

// Error codes. Stable across minor versions.
const (
	// InvalidInput is an out-of-contract call: a vague or empty task handed
	// to the scorer, an unknown domain under strict_domains, a bad flag.
	InvalidInput = "INVALID_INPUT"
	// ExtractionFailed means a note (or chunk) produced no records.
	ExtractionFailed    = "EXTRACTION_FAILED"
	ConfigNotFound      = "CONFIG_NOT_FOUND"
	ConfigAlreadyExists = "CONFIG_ALREADY_EXISTS"
	NotesNotFound       = "NOTES_NOT_FOUND"
	NotifyFailed        = "NOTIFY_FAILED"
	InternalError       = "INTERNAL_ERROR"
)

// Error is a coded error. Err, when set, is the underlying cause.
type Error struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error whose message is "message: err" and whose cause is err.
func Wrap(code string, err error, message string) *Error {
	return &Error{Code: code, Message: message + ": " + err.Error(), Err: err}
}

// WithDetails returns the error with the given details map attached.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// ExitCode returns 2 for InternalError, 1 for all others.
func (e *Error) ExitCode() int {
	if e.Code == InternalError {
		return 2 //nolint:mnd // exit code 2 for internal errors
	}
	return 1
}

// HasCode reports whether err (or anything it wraps) is an *Error with code.
func HasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// SilentError exits with Code and prints nothing; the command already wrote
// its result.
type SilentError struct {
	Code int
}

// Error implements the error interface.
func (e *SilentError) Error() string { return "exit " + strconv.Itoa(e.Code) }
