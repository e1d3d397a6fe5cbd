package types

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by the pipeline wraps exactly one of
// these, so callers can classify it with errors.Is.
var (
	ErrIO       = errors.New("i/o error")
	ErrSchema   = errors.New("schema error")
	ErrGeometry = errors.New("geometry error")
)

// GeometryError reports a record whose geometry could not take part in a
// union.
type GeometryError struct {
	Index int
	Key   string
	Err   error
}

func (e *GeometryError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("geometry error: record %d (key %q): %v", e.Index, e.Key, e.Err)
	}
	return fmt.Sprintf("geometry error: record %d: %v", e.Index, e.Err)
}

func (e *GeometryError) Unwrap() []error {
	return []error{ErrGeometry, e.Err}
}

// MissingField builds the schema error for a column absent from the data.
func MissingField(field, source string) error {
	if source == "" {
		return fmt.Errorf("%w: field %q not present", ErrSchema, field)
	}
	return fmt.Errorf("%w: field %q not present in %s", ErrSchema, field, source)
}
