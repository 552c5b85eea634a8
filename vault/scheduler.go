package vault

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"savesync/device"
	"savesync/record"
	"savesync/saveport"
)

type opType int

const (
	opSave opType = iota
	opLoad
	opDelete
	opErase
)

func (t opType) String() string {
	switch t {
	case opSave:
		return "save"
	case opLoad:
		return "load"
	case opDelete:
		return "delete"
	case opErase:
		return "erase"
	}
	return "unknown"
}

// operation is one queued request. Immutable once enqueued.
type operation struct {
	typ    opType
	files  []string
	forced bool

	// carried holds the winning record sets of a reconciler resync. A save
	// with carried records writes them verbatim instead of capturing fresh
	// state, and does not append the identity file.
	carried map[string][]saveport.SaveRecord

	// unlock closes the conflict gate once this operation completes.
	unlock bool
}

// enqueue validates and submits a public operation.
func (v *Vault) enqueue(typ opType, filenames []string, forced bool) error {
	files := dedupe(filenames)
	if len(files) == 0 {
		return fmt.Errorf("%s rejected: %w", typ, ErrNoFilenames)
	}
	return v.submit(operation{typ: typ, files: files, forced: forced})
}

// submit appends an operation to the queue and starts a drain loop if none
// is running. The append and the start-if-idle check happen under one lock
// so a wakeup can never be lost.
func (v *Vault) submit(op operation) error {
	if v.ctx.Err() != nil {
		return ErrClosed
	}
	if !op.forced && v.reg.Len() == 0 {
		return fmt.Errorf("%s rejected: %w", op.typ, ErrNoSaveables)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.gateLocked && !op.forced {
		return fmt.Errorf("%s rejected: %w", op.typ, ErrConflictPending)
	}
	if op.typ == opLoad {
		// The identity file is reconciled by the conflict gate alone, never
		// through the per-file merge path.
		op.files = without(op.files, v.opts.IdentityFile)
	}

	v.queue = append(v.queue, op)
	if !v.busy {
		v.busy = true
		v.idle = make(chan struct{})
		go v.drain()
	}
	return nil
}

// drain processes queued operations in FIFO order until the queue empties
// or the vault shuts down. Exactly one drain loop runs at a time; the busy
// flag is cleared on every exit path under the same lock that observed the
// queue.
func (v *Vault) drain() {
	for {
		v.mu.Lock()
		if v.ctx.Err() != nil || len(v.queue) == 0 {
			v.busy = false
			v.queue = nil
			close(v.idle)
			v.mu.Unlock()
			return
		}
		op := v.queue[0]
		v.queue = v.queue[1:]
		v.mu.Unlock()

		v.run(op)
	}
}

// run executes one operation. Failures are reported, never propagated; the
// gate unlock attached to an operation happens even if its body panics.
func (v *Vault) run(op operation) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("operation panicked", "op", op.typ.String(), "panic", r)
		}
		if op.unlock {
			v.unlockGate()
		}
	}()

	if !op.forced && v.opts.ValidateDevice && (op.typ == opSave || op.typ == opLoad) {
		if v.checkDeviceConflict() {
			v.report(fmt.Errorf("%s of %v deferred: %w", op.typ, op.files, ErrConflictPending))
			return
		}
	}

	switch op.typ {
	case opSave:
		v.runSave(op)
	case opLoad:
		v.runLoad(op)
	case opDelete:
		v.runDelete(op)
	case opErase:
		v.runErase(op)
	}
}

func (v *Vault) runSave(op operation) {
	files := op.files
	if op.carried == nil {
		files = appendMissing(files, v.opts.IdentityFile)
	}

	if v.opts.Workers > 1 && len(files) > 1 {
		g := new(errgroup.Group)
		g.SetLimit(v.opts.Workers)
		for _, f := range files {
			f := f
			g.Go(func() error {
				v.saveFile(v.ctx, f, op)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, f := range files {
			v.saveFile(v.ctx, f, op)
		}
	}
}

// saveFile captures, encodes, and writes a single file. A failure aborts
// only this file; the rest of the batch continues.
func (v *Vault) saveFile(ctx context.Context, filename string, op operation) {
	if ctx.Err() != nil {
		return
	}
	records, err := v.recordsFor(filename, op)
	if err != nil {
		v.report(err)
		return
	}
	payload, err := v.codec.Encode(records)
	if err != nil {
		v.report(fmt.Errorf("encode %q: %w", filename, err))
		return
	}
	if err := v.port.Write(ctx, filename, payload); err != nil {
		v.report(fmt.Errorf("write %q: %w", filename, err))
		return
	}
	logger.Debug("saved file", "file", filename, "records", len(records))
}

// recordsFor assembles the record list for one file of a save batch.
func (v *Vault) recordsFor(filename string, op operation) ([]saveport.SaveRecord, error) {
	if op.carried != nil {
		records := op.carried[filename]
		// Backfill a usable timestamp when the winning set lacks one.
		if _, ok := record.Timestamp(records, filename); !ok {
			records = record.StripTimestamp(records, filename)
			stamped := make([]saveport.SaveRecord, 0, len(records)+1)
			stamped = append(stamped, record.NewTimestamp(filename, v.opts.Now()))
			records = append(stamped, records...)
		}
		return records, nil
	}

	now := v.opts.Now().UTC()

	if filename == v.opts.IdentityFile {
		id := v.self
		id.Timestamp = now.Format(timeLayout)
		rec, err := id.Record()
		if err != nil {
			return nil, fmt.Errorf("capture identity: %w", err)
		}
		return []saveport.SaveRecord{record.NewTimestamp(filename, now), rec}, nil
	}

	saveables := v.reg.ForFile(filename)
	if len(saveables) == 0 {
		return nil, fmt.Errorf("save %q: %w", filename, ErrFileNotRegistered)
	}

	records := make([]saveport.SaveRecord, 0, len(saveables)+1)
	records = append(records, record.NewTimestamp(filename, now))
	for _, s := range saveables {
		data, err := s.CaptureState()
		if err != nil {
			v.report(&KeyError{File: filename, Key: s.Key(), Err: err})
			continue
		}
		records = append(records, saveport.SaveRecord{Key: s.Key(), Data: data})
	}
	return records, nil
}

func (v *Vault) runLoad(op operation) {
	resolved := make(map[string][]saveport.SaveRecord, len(op.files))
	resync := make(map[string][]saveport.SaveRecord)

	for _, f := range op.files {
		if v.ctx.Err() != nil {
			return
		}
		if len(v.reg.ForFile(f)) == 0 {
			v.report(fmt.Errorf("load %q: %w", f, ErrFileNotRegistered))
			continue
		}
		pair, err := v.port.Read(v.ctx, f)
		if err != nil {
			v.report(fmt.Errorf("read %q: %w", f, err))
			continue
		}
		local, localOK := v.decodeReplica(f, "local", pair.Local)
		remote, remoteOK := v.decodeReplica(f, "remote", pair.Remote)

		out := resolve(f, replica{local, localOK}, replica{remote, remoteOK}, pair.NetworkError)
		if !out.ok {
			continue
		}
		resolved[f] = out.records
		if out.resync {
			resync[f] = out.records
		}
	}

	// Restore always happens back on the primary execution context.
	v.onPrimary(func() {
		for _, f := range op.files {
			records, ok := resolved[f]
			if !ok {
				continue
			}
			v.restoreFile(f, records)
		}
	})

	if len(resync) > 0 {
		files := make([]string, 0, len(resync))
		for f := range resync {
			files = append(files, f)
		}
		sort.Strings(files)
		if err := v.submit(operation{typ: opSave, files: files, forced: true, carried: resync}); err != nil {
			v.report(fmt.Errorf("schedule resync of %v: %w", files, err))
			return
		}
		logger.Info("scheduled replica resync", "files", files)
	}
}

// decodeReplica decodes one replica's payload. An absent replica is silent;
// a present but undecodable one is reported and then treated as absent.
func (v *Vault) decodeReplica(filename, side string, payload []byte) ([]saveport.SaveRecord, bool) {
	if payload == nil {
		return nil, false
	}
	records, err := v.codec.Decode(payload)
	if err != nil {
		v.report(fmt.Errorf("%s replica of %q: %w", side, filename, err))
		return nil, false
	}
	return records, true
}

// restoreFile pushes a resolved record set into the registered saveables.
// Synthetic records are skipped; unknown keys are reported and skipped;
// saveables without a record in the set are left untouched.
func (v *Vault) restoreFile(filename string, records []saveport.SaveRecord) {
	for _, rec := range records {
		if record.IsTimestampKey(rec.Key) || rec.Key == device.RecordKey {
			continue
		}
		s, ok := v.reg.Lookup(rec.Key)
		if !ok {
			v.report(&KeyError{File: filename, Key: rec.Key, Err: ErrUnknownKey})
			continue
		}
		if err := s.RestoreState(rec.Data); err != nil {
			v.report(&KeyError{File: filename, Key: rec.Key, Err: err})
		}
	}
}

func (v *Vault) runDelete(op operation) {
	for _, f := range op.files {
		if v.ctx.Err() != nil {
			return
		}
		if err := v.port.Delete(v.ctx, f); err != nil {
			v.report(fmt.Errorf("delete %q: %w", f, err))
			continue
		}
		logger.Debug("deleted file", "file", f)
	}
}

func (v *Vault) runErase(op operation) {
	for _, f := range op.files {
		if v.ctx.Err() != nil {
			return
		}
		if err := v.port.Erase(v.ctx, f); err != nil {
			v.report(fmt.Errorf("erase %q: %w", f, err))
			continue
		}
		logger.Debug("erased file", "file", f)
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, f := range in {
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func without(in []string, drop string) []string {
	out := make([]string, 0, len(in))
	for _, f := range in {
		if f != drop {
			out = append(out, f)
		}
	}
	return out
}

func appendMissing(in []string, f string) []string {
	for _, have := range in {
		if have == f {
			return in
		}
	}
	out := make([]string, 0, len(in)+1)
	out = append(out, in...)
	return append(out, f)
}
