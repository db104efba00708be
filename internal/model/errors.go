package model

import (
	"errors"
	"fmt"
)

// ErrUnrecognizedFormat means no configured format matched the file header.
// Fatal for the whole batch: no partial detection.
var ErrUnrecognizedFormat = errors.New("unrecognized statement format")

// ErrConflictingSplitRule means a row was flagged both multi-installment and
// halved. Per-row, non-fatal.
var ErrConflictingSplitRule = errors.New("row flagged both installments and halves")

// RowError is a per-row parse failure. Recorded in the batch and skipped;
// never aborts the batch.
type RowError struct {
	Row    int
	Reason string
	Err    error
}

func (e *RowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("row %d: %s: %v", e.Row, e.Reason, e.Err)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

func (e *RowError) Unwrap() error { return e.Err }

// NormalizationError is a per-row failure to derive a canonical field.
// Recorded in the batch and skipped.
type NormalizationError struct {
	Row   int
	Field Field
	Err   error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("row %d: normalizing %s: %v", e.Row, e.Field, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// StoreError wraps a persistence failure during dedup or commit. Fatal for
// the whole batch: no partial writes remain.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
