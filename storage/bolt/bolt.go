// Package bolt implements a storage.Backend on bbolt (embedded B+ tree).
// All files live in a single bucket keyed by name.
package bolt

import (
	"bytes"
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"savesync/storage"
)

var filesBucket = []byte("files")

// Backend stores save files in a bbolt database.
type Backend struct {
	db *bolt.DB
}

// Open creates or opens a bbolt database at the given path.
func Open(path string) (*Backend, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Exists(_ context.Context, name string) (bool, error) {
	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(filesBucket)
		if bkt == nil {
			return nil
		}
		found = seek(bkt, []byte(name))
		return nil
	})
	return found, err
}

func (b *Backend) Read(_ context.Context, name string) ([]byte, error) {
	var val []byte
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(filesBucket)
		if bkt == nil {
			return nil
		}
		key := []byte(name)
		if !seek(bkt, key) {
			return nil
		}
		found = true
		v := bkt.Get(key)
		val = make([]byte, len(v))
		copy(val, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, storage.ErrNotFound
	}
	return val, nil
}

func (b *Backend) Write(_ context.Context, name string, data []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(filesBucket)
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
		return bkt.Put([]byte(name), data)
	})
}

func (b *Backend) Remove(_ context.Context, name string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(filesBucket)
		if bkt == nil {
			return nil
		}
		return bkt.Delete([]byte(name))
	})
}

// Close closes the underlying database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// seek distinguishes a present zero-length value (an erased file) from an
// absent key, which Bucket.Get alone cannot.
func seek(bkt *bolt.Bucket, key []byte) bool {
	k, _ := bkt.Cursor().Seek(key)
	return k != nil && bytes.Equal(k, key)
}
