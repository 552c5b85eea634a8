package vault

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey rejects a second registration under an existing key.
	ErrDuplicateKey = errors.New("save key already registered")

	// ErrNoSaveables rejects operations requested before any registration.
	ErrNoSaveables = errors.New("no saveables registered")

	// ErrFileNotRegistered marks a save or load of a file no saveable uses.
	ErrFileNotRegistered = errors.New("no saveables registered for file")

	// ErrUnknownKey marks a persisted record whose key is not registered.
	ErrUnknownKey = errors.New("record references unregistered key")

	// ErrConflictPending blocks non-forced operations while the conflict
	// gate is open.
	ErrConflictPending = errors.New("device conflict pending resolution")

	// ErrNoConflict is returned by ResolveConflict when the gate is closed.
	ErrNoConflict = errors.New("no conflict to resolve")

	// ErrClosed is returned once the vault has been shut down.
	ErrClosed = errors.New("vault closed")

	// ErrNoFilenames rejects an operation submitted without any filenames.
	ErrNoFilenames = errors.New("no filenames given")
)

// KeyError attributes a capture or restore failure to a file and key.
type KeyError struct {
	File string
	Key  string
	Err  error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("file %q key %q: %v", e.File, e.Key, e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }
