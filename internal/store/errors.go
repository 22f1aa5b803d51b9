package store

import (
	"errors"
	"fmt"
)

// NotFoundError reports a missing header, account or entry.
type NotFoundError struct {
	Resource string // "header", "account", "entry"
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.Key)
}

// NotFound builds a NotFoundError keyed by a numeric ID.
func NotFound(resource string, id int64) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: fmt.Sprintf("#%d", id)}
}

// NotFoundSlug builds a NotFoundError keyed by slug.
func NotFoundSlug(resource, slug string) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: fmt.Sprintf("%q", slug)}
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ConcurrentModificationError reports that an entry changed after the caller
// read it.
type ConcurrentModificationError struct {
	EntryID  int64
	Expected int64
	Actual   int64
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("entry #%d was modified concurrently (expected version %d, found %d)", e.EntryID, e.Expected, e.Actual)
}

// StoreError wraps an infrastructure failure (I/O, connectivity, constraint
// violation). The cause is available through errors.Unwrap.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Wrap returns err wrapped in a StoreError, leaving ledger errors that
// already carry meaning untouched.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		nf *NotFoundError
		cm *ConcurrentModificationError
		se *StoreError
	)
	if errors.As(err, &nf) || errors.As(err, &cm) || errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
