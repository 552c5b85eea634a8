// Package savesync persists the state of many independent application
// objects ("saveables") into a small set of named, encrypted files, kept
// consistent across a local and an optional remote replica. Open wires a
// configuration into a ready vault; applications embedding their own
// storage or identity handling can assemble the pieces directly from the
// vault, storage, cipher, and device packages.
package savesync

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"savesync/cipher"
	"savesync/config"
	"savesync/device"
	"savesync/internal/logging"
	"savesync/storage"
	boltstore "savesync/storage/bolt"
	dirstore "savesync/storage/dir"
	"savesync/vault"
)

// System bundles a configured vault with the resources behind it.
type System struct {
	Vault *vault.Vault

	closers []func() error
}

// Open validates the config, initializes logging, builds the storage
// backends and cipher, captures the device identity, and returns a ready
// System. Close releases everything.
func Open(cfg *config.Config) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logging.Init(cfg.Logging.Level, cfg.Logging.Format)

	dataDir := config.ExpandHome(cfg.Vault.DataDir)
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	sys := &System{}

	local, err := sys.openBackend(cfg.Storage.Backend, cfg.Storage.LocalPath, dataDir, "local")
	if err != nil {
		return nil, err
	}
	var remote storage.Backend
	if cfg.Storage.RemotePath != "" {
		remote, err = sys.openBackend(cfg.Storage.Backend, cfg.Storage.RemotePath, dataDir, "remote")
		if err != nil {
			_ = sys.Close()
			return nil, err
		}
	}

	var ciph cipher.Cipher = cipher.Noop{}
	if cfg.Vault.Encrypt {
		ciph = cipher.NewXChaCha(cfg.Vault.Password)
	}

	id, err := device.Capture(dataDir, cfg.Vault.DeviceName, time.Now())
	if err != nil {
		_ = sys.Close()
		return nil, fmt.Errorf("device identity: %w", err)
	}

	sys.Vault = vault.New(storage.NewDual(local, remote), nil, vault.Options{
		Cipher:         ciph,
		Identity:       id,
		IdentityFile:   cfg.Vault.IdentityFile,
		ValidateDevice: cfg.Vault.ValidateDevice,
		Workers:        cfg.Vault.Workers,
	})
	return sys, nil
}

// Close shuts down the vault and releases the storage backends.
func (s *System) Close() error {
	errs := make([]error, 0, len(s.closers)+1)
	if s.Vault != nil {
		errs = append(errs, s.Vault.Close())
	}
	for _, close := range s.closers {
		errs = append(errs, close())
	}
	return errors.Join(errs...)
}

func (s *System) openBackend(kind, path, dataDir, role string) (storage.Backend, error) {
	switch kind {
	case "bolt":
		if path == "" {
			path = filepath.Join(dataDir, role+".db")
		}
		b, err := boltstore.Open(config.ExpandHome(path))
		if err != nil {
			return nil, fmt.Errorf("%s storage: %w", role, err)
		}
		s.closers = append(s.closers, b.Close)
		return b, nil
	case "dir":
		if path == "" {
			path = filepath.Join(dataDir, role)
		}
		b, err := dirstore.New(config.ExpandHome(path))
		if err != nil {
			return nil, fmt.Errorf("%s storage: %w", role, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", kind)
}
