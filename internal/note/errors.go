package note

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a mutation targets an id that is not in the
// local collection. Unlike remote failures it is always surfaced.
var ErrNotFound = errors.New("note not found")

// StorageError wraps a failed local persistence write. It always propagates
// to the caller: a lost local write is the only signal that an optimistic
// mutation did not durably land, so it must never be absorbed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("local storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
