package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"savesync/storage"
)

func tempBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := Open(filepath.Join(t.TempDir(), "saves.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := tempBackend(t)

	if err := b.Write(ctx, "game.dat", []byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := b.Read(ctx, "game.dat")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("Read = %q, want payload", got)
	}

	ok, err := b.Exists(ctx, "game.dat")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true", ok, err)
	}
}

func TestReadMissing(t *testing.T) {
	ctx := context.Background()
	b := tempBackend(t)

	if _, err := b.Read(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Read of missing file: err = %v, want ErrNotFound", err)
	}
	ok, err := b.Exists(ctx, "nope")
	if err != nil || ok {
		t.Fatalf("Exists = %v, %v; want false", ok, err)
	}
}

func TestEmptyPayloadDistinctFromMissing(t *testing.T) {
	ctx := context.Background()
	b := tempBackend(t)

	if err := b.Write(ctx, "erased.dat", []byte{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := b.Read(ctx, "erased.dat")
	if err != nil {
		t.Fatalf("Read of erased file: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("Read = %v, want present empty payload", got)
	}
	ok, err := b.Exists(ctx, "erased.dat")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true", ok, err)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	b := tempBackend(t)

	if err := b.Write(ctx, "game.dat", []byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := b.Remove(ctx, "game.dat"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := b.Read(ctx, "game.dat"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Read after remove: err = %v, want ErrNotFound", err)
	}

	// Removing a missing file from an existing bucket is a no-op.
	if err := b.Remove(ctx, "game.dat"); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "saves.db")

	b, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Write(ctx, "game.dat", []byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = b2.Close() }()
	got, err := b2.Read(ctx, "game.dat")
	if err != nil || string(got) != "payload" {
		t.Fatalf("Read after reopen = %q, %v", got, err)
	}
}
