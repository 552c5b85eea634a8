// Package dir implements a storage.Backend on a plain directory, one file
// per save name. Pointing the root at a synced folder (Dropbox, a network
// mount) makes it a usable remote replica.
package dir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"savesync/storage"
)

// Backend stores save files under a root directory.
type Backend struct {
	root string
}

// New creates the root directory if needed and returns the backend.
func New(root string) (*Backend, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("creating save dir: %w", err)
	}
	return &Backend{root: root}, nil
}

func (b *Backend) Exists(_ context.Context, name string) (bool, error) {
	path, err := b.path(name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *Backend) Read(_ context.Context, name string) ([]byte, error) {
	path, err := b.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *Backend) Write(_ context.Context, name string, data []byte) error {
	path, err := b.path(name)
	if err != nil {
		return err
	}
	// Write-then-rename so a crash mid-write never leaves a torn replica.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (b *Backend) Remove(_ context.Context, name string) error {
	path, err := b.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return storage.ErrNotFound
		}
		return err
	}
	return nil
}

// path validates a logical save name and resolves it under the root. Names
// are flat: anything that would escape or nest is rejected.
func (b *Backend) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid save file name %q", name)
	}
	return filepath.Join(b.root, name), nil
}
