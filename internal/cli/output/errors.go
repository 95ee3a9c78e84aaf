package output

import (
	"errors"
	"fmt"
)

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts.
const (
	// Input errors
	ErrCodeMissingArgument = "MISSING_ARGUMENT"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeConfigInvalid   = "CONFIG_INVALID"

	// Record errors
	ErrCodeRecordNotFound  = "RECORD_NOT_FOUND"
	ErrCodeRecordConflict  = "RECORD_CONFLICT"
	ErrCodeEditBuffer      = "EDIT_BUFFER_MALFORMED"
	ErrCodeMetadataInvalid = "METADATA_INVALID"
	ErrCodeEditorFailed    = "EDITOR_FAILED"

	// Server errors
	ErrCodeDatabaseError = "DATABASE_ERROR"
	ErrCodeUserExists    = "USER_EXISTS"

	// Secret store errors
	ErrCodeSecretNotFound  = "SECRET_NOT_FOUND"
	ErrCodeWrongPassphrase = "WRONG_PASSPHRASE"

	// General errors
	ErrCodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// ErrMissingArgument marks a required argument or flag that was not given.
var ErrMissingArgument = errors.New("missing required argument")

// ExitFailure is the exit status of every failed command.
const ExitFailure = 1

// codedErr attaches a stable code and a hint to an error.
type codedErr struct {
	error
	code       string
	suggestion string
}

func (e *codedErr) Unwrap() error {
	return e.error
}

// WithCode tags err with a code and an optional suggestion for the user.
func WithCode(err error, code, suggestion string) error {
	if err == nil {
		return nil
	}
	return &codedErr{error: err, code: code, suggestion: suggestion}
}

// MissingArgument reports that what (e.g. "--database") is required.
func MissingArgument(what, suggestion string) error {
	return WithCode(fmt.Errorf("%w: %s", ErrMissingArgument, what), ErrCodeMissingArgument, suggestion)
}

// Classify returns the code and suggestion attached to err, falling back
// to MISSING_ARGUMENT for bare ErrMissingArgument and INTERNAL_ERROR
// otherwise.
func Classify(err error) (code, suggestion string) {
	var ce *codedErr
	if errors.As(err, &ce) {
		return ce.code, ce.suggestion
	}
	if errors.Is(err, ErrMissingArgument) {
		return ErrCodeMissingArgument, ""
	}
	return ErrCodeInternal, ""
}

// ExitCode maps a command error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return ExitFailure
}
