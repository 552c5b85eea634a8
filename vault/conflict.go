package vault

import (
	"savesync/device"
)

// checkDeviceConflict compares the local device identity against the remote
// replica of the identity file. On a mismatch it opens the conflict gate,
// emits a ConflictEvent, and returns true; ordinary operations stay
// suspended until ResolveConflict closes the gate.
//
// An unreadable, undecodable, or absent remote identity never opens the
// gate: there is nothing trustworthy to disagree with.
func (v *Vault) checkDeviceConflict() bool {
	v.mu.Lock()
	locked := v.gateLocked
	v.mu.Unlock()
	if locked {
		return true
	}

	pair, err := v.port.Read(v.ctx, v.opts.IdentityFile)
	if err != nil || pair.NetworkError || pair.Remote == nil {
		return false
	}
	records, err := v.codec.Decode(pair.Remote)
	if err != nil {
		return false
	}
	remote, ok := device.FromRecords(records)
	if !ok || remote.UniqueID == "" || remote.UniqueID == v.self.UniqueID {
		return false
	}

	v.mu.Lock()
	v.gateLocked = true
	v.gateRemote = remote
	v.mu.Unlock()

	logger.Warn("device identity mismatch, suspending operations",
		"local_device", v.self.UniqueID,
		"remote_device", remote.UniqueID,
		"remote_name", remote.Name)

	// Keep only the latest undelivered event.
	select {
	case v.conflicts <- ConflictEvent{Local: v.self, Remote: remote}:
	default:
	}
	return true
}

// ResolveConflict closes a pending whole-profile conflict. keepLocal forces
// a save of every registered file, overwriting both replicas with current
// in-memory state. Otherwise every non-identity file is force-loaded from
// storage and the identity file alone is force-saved, so this device owns
// the profile going forward. The gate unlocks when the final forced
// operation completes.
func (v *Vault) ResolveConflict(keepLocal bool) error {
	v.mu.Lock()
	locked := v.gateLocked
	v.mu.Unlock()
	if !locked {
		return ErrNoConflict
	}

	files := without(v.reg.Files(), v.opts.IdentityFile)

	if keepLocal {
		logger.Info("conflict resolved, keeping local profile", "files", files)
		return v.submit(operation{typ: opSave, files: files, forced: true, unlock: true})
	}

	logger.Info("conflict resolved, adopting remote profile", "files", files)
	if len(files) > 0 {
		if err := v.submit(operation{typ: opLoad, files: files, forced: true}); err != nil {
			return err
		}
	}
	// An explicit save with no other files still writes the identity file.
	return v.submit(operation{typ: opSave, forced: true, unlock: true})
}

func (v *Vault) unlockGate() {
	v.mu.Lock()
	v.gateLocked = false
	v.gateRemote = device.Identity{}
	v.mu.Unlock()
	logger.Debug("conflict gate released")
}
