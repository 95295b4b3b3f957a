package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrMissingSource       = errors.New("missing source")
	ErrMissingName         = errors.New("missing name")
	ErrIdentityCollision   = errors.New("identity collision")
	ErrUnresolvedReference = errors.New("unresolved reference")
	ErrCorpusLoad          = errors.New("corpus load failed")
	ErrNotFound            = errors.New("not found")
	ErrInvalidRecord       = errors.New("invalid record")
)

// RecordError describes a structural problem with a single record.
// It is fatal for that record only.
type RecordError struct {
	Kind string
	Name string
	Err  error
}

func (e *RecordError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s record: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s record %q: %v", e.Kind, e.Name, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// NewRecordError wraps err with the record kind and display name.
func NewRecordError(kind, name string, err error) *RecordError {
	return &RecordError{Kind: kind, Name: name, Err: err}
}
