// Package vault is the savesync core: a registry of saveables, a
// single-flight operation scheduler draining save/load/delete/erase
// requests in submission order, a per-file replica reconciler with
// last-writer-wins semantics, and a whole-profile conflict gate keyed on
// device identity.
package vault

import (
	"context"
	"sync"
	"time"

	"savesync/cipher"
	"savesync/device"
	"savesync/internal/logging"
	"savesync/record"
	"savesync/saveport"
)

var logger = logging.For("vault")

// DefaultIdentityFile is the dedicated file carrying the device identity.
const DefaultIdentityFile = "device.id"

// timeLayout is the wire format of every recorded instant.
const timeLayout = time.RFC3339Nano

// Options tune a Vault. The zero value is usable: no encryption, inline
// execution, wall-clock timestamps, an ephemeral device identity.
type Options struct {
	// Cipher encrypts file payloads. Nil selects cipher.Noop.
	Cipher cipher.Cipher

	// Identity is the local device identity used for whole-profile conflict
	// detection. A zero value is replaced by an ephemeral capture.
	Identity device.Identity

	// IdentityFile names the dedicated identity file.
	IdentityFile string

	// ValidateDevice enables the whole-profile conflict check before every
	// non-forced save and load.
	ValidateDevice bool

	// Workers bounds the per-file capture/encode/write pool inside a save
	// batch. Values below 2 run files sequentially, which aids debugging.
	Workers int

	// OnPrimary schedules a function onto the application's primary
	// execution context (a game loop, a UI thread). Restore callbacks always
	// go through it. Nil runs them inline on the drain goroutine.
	OnPrimary func(fn func())

	// Report receives every non-fatal failure (decode errors, unknown keys,
	// storage failures). Nil logs them instead.
	Report func(err error)

	// Now supplies timestamps for the per-file timestamp records. Callers
	// needing stronger guarantees than wall-clock last-writer-wins can
	// plug a monotonic or server-issued source here. Nil uses time.Now.
	Now func() time.Time
}

// ConflictEvent carries both identities of a detected whole-profile
// conflict. Resolution is external via ResolveConflict.
type ConflictEvent struct {
	Local  device.Identity
	Remote device.Identity
}

// Vault is the public operation surface over a storage port.
type Vault struct {
	port  saveport.Port
	reg   *Registry
	codec *record.Codec
	opts  Options
	self  device.Identity

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	queue      []operation
	busy       bool
	idle       chan struct{} // closed whenever no drain loop is running
	gateLocked bool
	gateRemote device.Identity

	conflicts chan ConflictEvent
}

// New builds a vault over the given port. reg may be nil to create a fresh
// registry; passing one in lets tests share or pre-populate it.
func New(port saveport.Port, reg *Registry, opts Options) *Vault {
	if reg == nil {
		reg = NewRegistry()
	}
	if opts.Cipher == nil {
		opts.Cipher = cipher.Noop{}
	}
	if opts.IdentityFile == "" {
		opts.IdentityFile = DefaultIdentityFile
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Identity.UniqueID == "" {
		opts.Identity = device.Ephemeral(opts.Now())
	}

	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	return &Vault{
		port:      port,
		reg:       reg,
		codec:     record.NewCodec(opts.Cipher),
		opts:      opts,
		self:      opts.Identity,
		ctx:       ctx,
		cancel:    cancel,
		idle:      idle,
		conflicts: make(chan ConflictEvent, 1),
	}
}

// Register stores a saveable in the vault's registry. Duplicate keys are
// rejected and warned about, never silently overwritten.
func (v *Vault) Register(s saveport.Saveable) error {
	if err := v.reg.Register(s); err != nil {
		logger.Warn("registration rejected", "key", s.Key(), "err", err)
		return err
	}
	return nil
}

// Save queues a save of the given files. The device identity file is always
// written alongside an explicit save batch.
func (v *Vault) Save(filenames ...string) error {
	return v.enqueue(opSave, filenames, false)
}

// Load queues a load of the given files, reconciling local and remote
// replicas per file before restoring state on the primary context.
func (v *Vault) Load(filenames ...string) error {
	return v.enqueue(opLoad, filenames, false)
}

// Delete queues outright removal of the given files.
func (v *Vault) Delete(filenames ...string) error {
	return v.enqueue(opDelete, filenames, false)
}

// Erase queues overwriting the given files with an empty payload, keeping
// them in existence.
func (v *Vault) Erase(filenames ...string) error {
	return v.enqueue(opErase, filenames, false)
}

// Exists reports whether any replica of the file is present.
func (v *Vault) Exists(ctx context.Context, filename string) (bool, error) {
	ex, err := v.port.Exists(ctx, filename)
	if err != nil {
		return false, err
	}
	return ex.Local || ex.Remote, nil
}

// IsBusy reports whether a drain loop is currently running.
func (v *Vault) IsBusy() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.busy
}

// Conflicts exposes detected whole-profile conflicts. The channel holds at
// most the latest undelivered event.
func (v *Vault) Conflicts() <-chan ConflictEvent {
	return v.conflicts
}

// Flush blocks until the scheduler has drained to idle, the context ends,
// or the vault closes.
func (v *Vault) Flush(ctx context.Context) error {
	for {
		v.mu.Lock()
		busy := v.busy
		idle := v.idle
		v.mu.Unlock()
		if !busy {
			return nil
		}
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		case <-v.ctx.Done():
			return ErrClosed
		}
	}
}

// Close cancels the drain loop and waits for it to exit. Remaining queued
// operations are abandoned; the busy flag is guaranteed to reset.
func (v *Vault) Close() error {
	v.cancel()
	v.mu.Lock()
	idle := v.idle
	v.mu.Unlock()
	<-idle
	return nil
}

// report hands a non-fatal failure to the configured sink.
func (v *Vault) report(err error) {
	if v.opts.Report != nil {
		v.opts.Report(err)
		return
	}
	logger.Error("operation failure", "err", err)
}

// onPrimary runs fn on the application's primary execution context and
// waits for it to finish, so the drain never races host state access.
func (v *Vault) onPrimary(fn func()) {
	if v.opts.OnPrimary == nil {
		fn()
		return
	}
	done := make(chan struct{})
	v.opts.OnPrimary(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
	case <-v.ctx.Done():
	}
}
