// Package fault defines the structured error taxonomy shared by every marque
// component. Each failure carries a Kind so callers classify outcomes without
// inspecting error text; only the SQLite driver boundary (dbopen.IsBusy) ever
// looks at message strings.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure.
type Kind int

const (
	// StorageUnavailable means the embedded engine could not be opened at
	// all. Fatal for the whole engine, not per-operation.
	StorageUnavailable Kind = iota

	// NotInitialized means an operation was issued before Open or after
	// Close.
	NotInitialized

	// SchemaUpgradeFailed means schema reconciliation rolled back during
	// open. Fatal at open time.
	SchemaUpgradeFailed

	// TransactionAborted means the engine aborted a transaction under
	// contention. Transient: retried internally, surfaced when retries
	// are exhausted.
	TransactionAborted

	// RecordWriteFailed is a per-record failure inside a batch chunk. It
	// is reported through the batch callback and summary, never thrown
	// past the batch call.
	RecordWriteFailed

	// QueryFailed wraps engine errors on point and range reads.
	QueryFailed
)

func (k Kind) String() string {
	switch k {
	case StorageUnavailable:
		return "storage_unavailable"
	case NotInitialized:
		return "not_initialized"
	case SchemaUpgradeFailed:
		return "schema_upgrade_failed"
	case TransactionAborted:
		return "transaction_aborted"
	case RecordWriteFailed:
		return "record_write_failed"
	case QueryFailed:
		return "query_failed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified engine failure.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "store.GetByID"
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("marque: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("marque: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error wrapping cause (which may be nil).
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

// KindOf returns the Kind carried by err, or QueryFailed if err is not a
// classified fault (reads are the common unclassified path).
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return QueryFailed
}

// IsTransient reports whether err should be retried. Only aborted
// transactions qualify; application errors inside a unit of work must
// propagate immediately.
func IsTransient(err error) bool {
	return Is(err, TransactionAborted)
}
