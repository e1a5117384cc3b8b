// Package credstore persists the session credential across process restarts.
//
// The Session Store is the only writer. A FileStore keeps the credential in
// a single 0600 JSON file; a MemoryStore backs tests and embedders that
// refuse disk persistence. All failures are reported as *StorageError so
// callers can degrade to an in-memory session instead of failing the user.
package credstore

import (
	"errors"
	"fmt"
)

// Store holds the one persisted credential.
type Store interface {
	// Load returns the stored credential, or "" with a nil error when
	// nothing is stored.
	Load() (string, error)

	// Save replaces the stored credential.
	Save(credential string) error

	// Delete removes the stored credential. Deleting an empty store is
	// not an error.
	Delete() error
}

// ErrStorage is returned (via errors.Is) when durable credential storage
// is unavailable. Callers should continue with an in-memory credential.
var ErrStorage = errors.New("credential storage unavailable")

// StorageError wraps a failed storage operation.
type StorageError struct {
	// Op is the operation that failed: "read", "write", "delete".
	Op string
	// Err is the underlying error.
	Err error
}

// Error returns a human-readable description of the storage failure.
func (e *StorageError) Error() string {
	return fmt.Sprintf("credential storage %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrStorage).
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
