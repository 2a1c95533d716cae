// Package docxtree provides custom error types for better error handling and reporting.
package docxtree

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the engine matches exactly one of these
// with errors.Is.
var (
	// ErrMalformedContainer means the package could not be opened.
	ErrMalformedContainer = errors.New("malformed container")
	// ErrAlreadyAttached means a block that already has a parent was attached again.
	ErrAlreadyAttached = errors.New("block is already attached")
	// ErrNotAttached means a detached block was detached or located.
	ErrNotAttached = errors.New("block is not attached")
	// ErrNotFound means a block or part does not belong where it was looked up.
	ErrNotFound = errors.New("not found")
	// ErrOffsetOutOfRange means a text offset does not fall inside the target.
	ErrOffsetOutOfRange = errors.New("offset out of range")
	// ErrIndexOutOfRange means a row, cell or column index is invalid.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrUndefinedNumbering means a numId does not resolve in the numbering part.
	ErrUndefinedNumbering = errors.New("undefined numbering")
	// ErrDuplicateID means two paragraphs carry the same identifier.
	ErrDuplicateID = errors.New("duplicate paragraph id")
	// ErrConcurrentModification means a container was mutated during iteration.
	ErrConcurrentModification = errors.New("container modified during iteration")
	// ErrGridMismatch means a table grid and its rows disagree.
	ErrGridMismatch = errors.New("table grid mismatch")
)

// DocumentError represents an error during document operations
type DocumentError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *DocumentError) Error() string {
	if e.Path != "" && e.Cause != nil {
		return fmt.Sprintf("document error during %s of '%s': %v", e.Operation, e.Path, e.Cause)
	} else if e.Path != "" {
		return fmt.Sprintf("document error during %s of '%s'", e.Operation, e.Path)
	} else if e.Cause != nil {
		return fmt.Sprintf("document error during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("document error during %s", e.Operation)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// NewDocumentError creates a new document error
func NewDocumentError(operation, path string, cause error) error {
	return &DocumentError{
		Operation: operation,
		Path:      path,
		Cause:     cause,
	}
}

// FormatError reports a broken cross-reference inside the package, as
// opposed to a caller misusing the API.
type FormatError struct {
	Part   string
	Detail string
	Cause  error
}

func (e *FormatError) Error() string {
	if e.Part != "" {
		return fmt.Sprintf("document format error in '%s': %s: %v", e.Part, e.Detail, e.Cause)
	}
	return fmt.Sprintf("document format error: %s: %v", e.Detail, e.Cause)
}

func (e *FormatError) Unwrap() error {
	return e.Cause
}

// NewFormatError creates a new format error
func NewFormatError(part, detail string, cause error) error {
	return &FormatError{
		Part:   part,
		Detail: detail,
		Cause:  cause,
	}
}

// MultiError collects multiple errors
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector
func NewMultiError() *MultiError {
	return &MultiError{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collection (ignores nil errors)
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of errors
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Err returns the multi-error or nil if empty
func (m *MultiError) Err() error {
	if len(m.errors) == 0 {
		return nil
	}
	if len(m.errors) == 1 {
		return m.errors[0]
	}
	return m
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.errors
}

func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return "no errors"
	}

	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d errors occurred:", len(m.errors)))
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

// IsDocumentError checks if an error is a document error
func IsDocumentError(err error) bool {
	var de *DocumentError
	return errors.As(err, &de)
}

// IsFormatError checks if an error is a document format error
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
