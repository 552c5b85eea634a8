package savesync_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"savesync"
	"savesync/config"
	"savesync/saveport"
)

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func (c *counter) set(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = n
}

func openTestSystem(t *testing.T, backend string, encrypt bool) *savesync.System {
	t.Helper()
	cfg := config.Defaults()
	cfg.Vault.DataDir = t.TempDir()
	cfg.Vault.DeviceName = "test-device"
	cfg.Storage.Backend = backend
	cfg.Storage.RemotePath = filepath.Join(t.TempDir(), "remote")
	if backend == "bolt" {
		cfg.Storage.RemotePath += ".db"
	}
	if encrypt {
		cfg.Vault.Encrypt = true
		cfg.Vault.Password = "hunter2"
	}

	sys, err := savesync.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := sys.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return sys
}

func TestOpenSaveLoadRoundTrip(t *testing.T) {
	for _, backend := range []string{"dir", "bolt"} {
		t.Run(backend, func(t *testing.T) {
			sys := openTestSystem(t, backend, false)

			score := &counter{}
			score.set(42)
			s := saveport.NewJSONSaveable("Score", "progress.dat", score.get, score.set)
			if err := sys.Vault.Register(s); err != nil {
				t.Fatalf("Register: %v", err)
			}

			if err := sys.Vault.Save("progress.dat"); err != nil {
				t.Fatalf("Save: %v", err)
			}
			flush(t, sys)

			score.set(0)
			if err := sys.Vault.Load("progress.dat"); err != nil {
				t.Fatalf("Load: %v", err)
			}
			flush(t, sys)

			if got := score.get(); got != 42 {
				t.Fatalf("restored score = %d, want 42", got)
			}

			ok, err := sys.Vault.Exists(context.Background(), "progress.dat")
			if err != nil || !ok {
				t.Fatalf("Exists = %v, %v", ok, err)
			}
		})
	}
}

func TestOpenWithEncryption(t *testing.T) {
	sys := openTestSystem(t, "dir", true)

	score := &counter{}
	score.set(7)
	s := saveport.NewJSONSaveable("Score", "progress.dat", score.get, score.set)
	if err := sys.Vault.Register(s); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := sys.Vault.Save("progress.dat"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	flush(t, sys)

	score.set(0)
	if err := sys.Vault.Load("progress.dat"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	flush(t, sys)

	if got := score.get(); got != 7 {
		t.Fatalf("restored score = %d, want 7", got)
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Storage.Backend = "carrier-pigeon"
	if _, err := savesync.Open(cfg); err == nil {
		t.Fatal("Open accepted an unknown backend")
	}
}

func flush(t *testing.T, sys *savesync.System) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sys.Vault.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}
