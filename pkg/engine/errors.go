package engine

import (
	"errors"
	"fmt"

	"github.com/sanonone/jsonkv/pkg/core"
)

var (
	// ErrNotFound is returned when the requested key is absent.
	ErrNotFound = errors.New("key not found")

	// ErrInvalidValue is returned for an empty key or a value that is not
	// well-formed JSON. It is never caused by storage.
	ErrInvalidValue = core.ErrInvalidValue

	// ErrClosed is returned by mutations issued after Close.
	ErrClosed = errors.New("engine is closed")
)

// PersistenceError reports that a mutation could not be made durable. The
// in-memory keyspace was left as it was before the call.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error (%s %q): %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// CorruptStoreError reports that the store file exists but could not be
// parsed at startup. The engine refuses to open in that case.
type CorruptStoreError struct {
	Path string
	Err  error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("corrupt store %s: %v", e.Path, e.Err)
}

func (e *CorruptStoreError) Unwrap() error {
	return e.Err
}
