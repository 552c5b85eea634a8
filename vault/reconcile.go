package vault

import (
	"savesync/internal/logging"
	"savesync/record"
	"savesync/saveport"
)

var rlog = logging.For("reconcile")

// replica is one decoded copy of a file. ok is false when the copy was
// absent or failed to decode; both degrade the same way.
type replica struct {
	records []saveport.SaveRecord
	ok      bool
}

// outcome is the reconciler's verdict for one file. resync asks the
// scheduler to write the winning set back so the losing replica converges.
type outcome struct {
	ok      bool
	records []saveport.SaveRecord
	resync  bool
}

// resolve picks the winning replica of a file using the embedded timestamp
// records: last writer wins on the recorded wall-clock instant, remote wins
// ties. A network error while checking the remote suppresses resyncs that
// would otherwise clobber a replica we never observed.
//
// The merge is keyed on capture-time wall clocks, not causal history, so it
// is vulnerable to clock skew across devices; callers needing stronger
// guarantees must inject a monotonic or server-issued timestamp source.
func resolve(filename string, local, remote replica, networkError bool) outcome {
	switch {
	case !local.ok && !remote.ok:
		return outcome{}
	case !local.ok:
		// Remote-only: adopt it as-is. No resync is scheduled; the local
		// replica converges on the next explicit save.
		return outcome{ok: true, records: remote.records}
	case !remote.ok:
		return outcome{ok: true, records: local.records, resync: !networkError}
	}

	localTS, localHas := record.Timestamp(local.records, filename)
	remoteTS, remoteHas := record.Timestamp(remote.records, filename)

	switch {
	case localHas && !remoteHas:
		return outcome{ok: true, records: local.records, resync: !networkError}
	case !localHas && remoteHas:
		return outcome{ok: true, records: remote.records, resync: true}
	case !localHas && !remoteHas:
		// Neither replica is stamped; prefer remote and resync to backfill
		// timestamps on both sides.
		return outcome{ok: true, records: remote.records, resync: true}
	}

	switch {
	case localTS.After(remoteTS):
		rlog.Debug("local replica wins", "file", filename, "local_ts", localTS, "remote_ts", remoteTS)
		return outcome{ok: true, records: local.records, resync: true}
	case remoteTS.After(localTS):
		rlog.Debug("remote replica wins", "file", filename, "local_ts", localTS, "remote_ts", remoteTS)
		return outcome{ok: true, records: remote.records, resync: true}
	default:
		return outcome{ok: true, records: remote.records}
	}
}
