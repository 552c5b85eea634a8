// Package storage implements the save-file storage port as a pair of
// replicas: one mandatory local backend and one optional remote backend
// (a synced directory, a cloud mount, another device's copy). The Backend
// interface keeps the actual medium swappable; bbolt and plain-directory
// implementations live in subpackages.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Backend.Read when the named file is absent.
var ErrNotFound = errors.New("file not found")

// Backend stores one replica of named save files. An erased file is stored
// as a zero-length payload and is distinct from an absent one.
type Backend interface {
	Exists(ctx context.Context, name string) (bool, error)
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Remove(ctx context.Context, name string) error
}
