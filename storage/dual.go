package storage

import (
	"context"
	"errors"
	"fmt"

	"savesync/internal/logging"
	"savesync/saveport"
)

var logger = logging.For("storage")

// Dual implements saveport.Port over a local backend and an optional remote
// replica. Local read failures degrade to "replica absent"; remote read
// failures additionally flag a network error so the reconciler knows the
// remote copy was never actually observed. Write and delete failures on
// either replica are hard errors.
type Dual struct {
	local  Backend
	remote Backend // nil when no remote replica is configured
}

// NewDual combines a local backend with an optional remote one. remote may
// be nil.
func NewDual(local, remote Backend) *Dual {
	return &Dual{local: local, remote: remote}
}

func (d *Dual) Exists(ctx context.Context, name string) (saveport.Existence, error) {
	var ex saveport.Existence

	ok, err := d.local.Exists(ctx, name)
	if err != nil {
		logger.Warn("local existence check failed", "file", name, "err", err)
	}
	ex.Local = err == nil && ok

	if d.remote != nil {
		ok, err := d.remote.Exists(ctx, name)
		if err != nil {
			logger.Warn("remote existence check failed", "file", name, "err", err)
		}
		ex.Remote = err == nil && ok
	}
	return ex, nil
}

func (d *Dual) Read(ctx context.Context, name string) (saveport.ReplicaPair, error) {
	var pair saveport.ReplicaPair

	data, err := d.local.Read(ctx, name)
	switch {
	case err == nil:
		pair.Local = data
	case errors.Is(err, ErrNotFound):
	default:
		logger.Warn("local read failed, treating replica as absent", "file", name, "err", err)
	}

	if d.remote != nil {
		data, err := d.remote.Read(ctx, name)
		switch {
		case err == nil:
			pair.Remote = data
		case errors.Is(err, ErrNotFound):
		default:
			pair.NetworkError = true
			logger.Warn("remote read failed", "file", name, "err", err)
		}
	}
	return pair, nil
}

func (d *Dual) Write(ctx context.Context, name string, data []byte) error {
	var errs []error
	if err := d.local.Write(ctx, name, data); err != nil {
		errs = append(errs, fmt.Errorf("local write %q: %w", name, err))
	}
	if d.remote != nil {
		if err := d.remote.Write(ctx, name, data); err != nil {
			errs = append(errs, fmt.Errorf("remote write %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dual) Erase(ctx context.Context, name string) error {
	return d.Write(ctx, name, []byte{})
}

func (d *Dual) Delete(ctx context.Context, name string) error {
	var errs []error
	if err := d.local.Remove(ctx, name); err != nil && !errors.Is(err, ErrNotFound) {
		errs = append(errs, fmt.Errorf("local delete %q: %w", name, err))
	}
	if d.remote != nil {
		if err := d.remote.Remove(ctx, name); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, fmt.Errorf("remote delete %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
