// Package store loads template declarations and source files from a
// templates directory tree.
package store

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when a template declaration does not exist.
	ErrNotFound = errors.New("template not found")

	// ErrSourceNotFound is returned when a declared source file is missing
	// from the template directory.
	ErrSourceNotFound = errors.New("source file not found")

	// ErrUnsafePath is returned when a declared file path points outside the
	// template directory.
	ErrUnsafePath = errors.New("file path escapes template directory")

	// ErrNotDirectory is returned when the configured templates root is not
	// a directory.
	ErrNotDirectory = errors.New("templates root is not a directory")
)

// NotFoundError reports a missing declaration or source file with enough
// context to act on it. It unwraps to ErrNotFound or ErrSourceNotFound.
type NotFoundError struct {
	Template string
	Path     string
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("template %s: %s: %s", e.Template, e.Err, e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(template, path string, err error) *NotFoundError {
	return &NotFoundError{
		Template: template,
		Path:     path,
		Err:      err,
	}
}
