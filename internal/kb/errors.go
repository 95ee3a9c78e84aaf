package kb

import "errors"

var (
	// ErrRecordNotFound means no document exists under the requested id.
	ErrRecordNotFound = errors.New("record not found")
	// ErrRecordConflict means the record changed on the server while it
	// was being edited.
	ErrRecordConflict = errors.New("record was modified concurrently")
	// ErrMalformedEditBuffer means the edited text lacks the two "---"
	// lines that bound the metadata block.
	ErrMalformedEditBuffer = errors.New("edit buffer is missing the --- metadata delimiters")
	// ErrInvalidMetadataSyntax means the metadata block is not a valid
	// YAML mapping of record fields.
	ErrInvalidMetadataSyntax = errors.New("invalid metadata")
)
