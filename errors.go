package grouploader

import (
	"errors"
	"fmt"
)

// ErrNotLoaded is returned by Get when the (descriptor, key) pair was never
// requested, or was requested but Run has not resolved it yet. Programmer
// error, never retried internally.
var ErrNotLoaded = errors.New("grouploader: result not loaded")

// ErrSourceNotFound is returned when an operation names a source id that was
// never registered with the loader.
var ErrSourceNotFound = errors.New("grouploader: source not found")

// InvalidQueryError reports descriptor options a source cannot execute, such
// as ordering by a column the relation does not have. The whole batch fails,
// nothing is partially applied, and re-running without changing the descriptor
// will not help.
type InvalidQueryError struct {
	Kind   string
	Reason error
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("grouploader: invalid query for %q: %v", e.Kind, e.Reason)
}

func (e *InvalidQueryError) Unwrap() error { return e.Reason }

// FetchError wraps a backend failure during a batch fetch. It is attached to
// every key in the failed batch. The caller may Load the keys again and Run to
// retry.
type FetchError struct {
	SourceID string
	Kind     string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("grouploader: batch fetch failed for source %q kind %q: %v", e.SourceID, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
