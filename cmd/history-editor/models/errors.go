package models

import (
	"errors"
	"fmt"
)

// Caller-input errors. Each one is recoverable by correcting the request;
// none of them reaches the store.
var (
	ErrEntityNotFound    = errors.New("entity not found")
	ErrRecordNotFound    = errors.New("record not found")
	ErrInvalidAttributes = errors.New("invalid attributes")
	ErrInvalidTimestamp  = errors.New("invalid timestamp")
	ErrInvalidLimit      = errors.New("limit must be between 1 and 1000")
	ErrInvalidRange      = errors.New("start_time must not be after end_time")
	ErrInvalidInput      = errors.New("invalid input")

	// ErrStatisticSourceData rejects direct edits of aggregate rows whose
	// period still holds underlying source data. The aggregate would be
	// overwritten by the next recalculation; the source must be edited instead.
	ErrStatisticSourceData = errors.New("statistic has underlying source data, edit the source records instead")
)

// StorageError wraps an infrastructure failure from the store. The underlying
// driver message is logged at the repository boundary and must not be shown to
// the caller.
type StorageError struct {
	Operation string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %s", e.Operation, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError tags err with the failing repository operation.
func NewStorageError(operation string, err error) *StorageError {
	return &StorageError{Operation: operation, Err: err}
}

// IsCallerError reports whether err belongs to the caller-input taxonomy, as
// opposed to a StorageError or an unknown failure.
func IsCallerError(err error) bool {
	for _, callerErr := range []error{
		ErrEntityNotFound,
		ErrRecordNotFound,
		ErrInvalidAttributes,
		ErrInvalidTimestamp,
		ErrInvalidLimit,
		ErrInvalidRange,
		ErrInvalidInput,
		ErrStatisticSourceData,
	} {
		if errors.Is(err, callerErr) {
			return true
		}
	}
	return false
}
