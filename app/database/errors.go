package database

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a get misses. Callers recover locally where
// absence is semantically valid.
var ErrNotFound = errors.New("item not found")

// ConditionFailedError reports a violated write condition (constraint or
// optimistic check). Never retried blindly: retrying without re-reading is
// unsafe.
type ConditionFailedError struct {
	Err error
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition failed: %v", e.Err)
}

func (e *ConditionFailedError) Unwrap() error {
	return e.Err
}

// TransientStoreError reports a service-level failure that is safe to retry
// at the orchestration layer.
type TransientStoreError struct {
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("transient store error: %v", e.Err)
}

func (e *TransientStoreError) Unwrap() error {
	return e.Err
}

// FatalStoreError reports a malformed request. Not retried.
type FatalStoreError struct {
	Err error
}

func (e *FatalStoreError) Error() string {
	return fmt.Sprintf("fatal store error: %v", e.Err)
}

func (e *FatalStoreError) Unwrap() error {
	return e.Err
}

// classifyError maps driver-level failures onto the repository error
// taxonomy. This is the single translation point for store errors.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, driver.ErrBadConn) {
		return &TransientStoreError{Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransientStoreError{Err: err}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "40", "53", "57", "58":
			// Connection, transaction rollback, resource and operator
			// intervention classes are retryable.
			return &TransientStoreError{Err: err}
		case "23":
			// Integrity constraint violation
			return &ConditionFailedError{Err: err}
		}
	}

	return &FatalStoreError{Err: err}
}
