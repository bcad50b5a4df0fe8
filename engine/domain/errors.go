package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Catalog-state errors are fatal to a batch; the rest are
// row-level and must not abort sibling rows.
var (
	ErrNoActiveVersion        = errors.New("no active catalog version")
	ErrMultipleActiveVersions = errors.New("multiple active catalog versions")
	ErrCatalogUnavailable     = errors.New("catalog unavailable")
	ErrEmptyQuery             = errors.New("query has no usable fields")
	ErrYearOutOfRange         = errors.New("year out of range")
	ErrEmbedderNotReady       = errors.New("embedder not initialized")
	ErrRetrievalTimeout       = errors.New("retrieval timed out")
	ErrEmbeddingTimeout       = errors.New("embedding timed out")
)

// IsFatal reports whether err invalidates the whole batch rather than a
// single row. Catalog-state inconsistencies must never be silently tolerated.
func IsFatal(err error) bool {
	return errors.Is(err, ErrNoActiveVersion) ||
		errors.Is(err, ErrMultipleActiveVersions) ||
		errors.Is(err, ErrCatalogUnavailable)
}

// RowError wraps a row-level failure with enough context for replay.
type RowError struct {
	RowIndex int
	Stage    string
	Wrapped  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s: %v", e.RowIndex, e.Stage, e.Wrapped)
}

func (e *RowError) Unwrap() error { return e.Wrapped }

// NewRowError creates a RowError.
func NewRowError(rowIndex int, stage string, wrapped error) *RowError {
	return &RowError{RowIndex: rowIndex, Stage: stage, Wrapped: wrapped}
}

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
