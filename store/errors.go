// Package store owns the event log, state log, and per-actor index, and
// enforces the store's admission, ordering, and eviction invariants.
package store

import (
	"errors"
	"fmt"
)

// Sentinel errors for store failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrDropped indicates an event was not admitted — either the sampler
	// dropped it or an adapter's tracing level disallowed its kind. Not an
	// error in the failure sense; the store remains healthy.
	ErrDropped = errors.New("store: event dropped")

	// ErrSanitizationFailure indicates an individual event's payload could
	// not be bounded and the event was discarded. Non-fatal.
	ErrSanitizationFailure = errors.New("store: sanitization failure")

	// ErrCapacityOverflow indicates the 64-bit id counter is exhausted.
	// Fatal: the Store refuses all further writes once this occurs.
	ErrCapacityOverflow = errors.New("store: id counter exhausted")

	// ErrInvalidConfiguration indicates a StoreConfig failed validation at
	// construction time.
	ErrInvalidConfiguration = errors.New("store: invalid configuration")
)

// StoreError wraps an underlying error with store-level classification.
// It preserves the original error in the chain for inspection via errors.As.
type StoreError struct {
	// Kind is the sentinel error for classification (e.g., ErrDropped).
	Kind error
	// Op is the operation that failed (e.g., "put", "put_critical").
	Op string
	// Err is the underlying error, if any beyond Kind itself.
	Err error
}

func (e *StoreError) Error() string {
	if e.Err != nil && e.Err != e.Kind {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *StoreError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is reports whether the error matches the target sentinel.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func newStoreError(kind error, op string, err error) *StoreError {
	return &StoreError{Kind: kind, Op: op, Err: err}
}
