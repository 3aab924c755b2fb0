package rom

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLink is returned when a link string does not resolve to an
	// object of the document.
	ErrInvalidLink = errors.New("invalid link")
	// ErrNotFound is returned when a named object does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoTextEncoding is returned when a text encoding is required but
	// not defined.
	ErrNoTextEncoding = errors.New("no text encoding")
	// ErrOutOfRange is returned for edits outside of the data of a node.
	ErrOutOfRange = errors.New("out of range")
)

// SchemaError is a mistake in a schema definition that prevents the
// document from being created.
type SchemaError struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "schema error: " + e.Reason
	}
	return fmt.Sprintf("schema error at '%s': %s", e.Path, e.Reason)
}

func schemaErrorf(path, format string, args ...any) *SchemaError {
	return &SchemaError{
		Path:   path,
		Reason: fmt.Sprintf(format, args...),
	}
}
