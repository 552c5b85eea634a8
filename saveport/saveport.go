// Package saveport defines the contracts shared between applications and the
// savesync core: the Saveable interface implemented by application objects,
// the SaveRecord wire shape, and the storage Port implemented by replica
// backends.
package saveport

import "encoding/json"

// Saveable is an application object capable of producing and consuming a
// serializable state snapshot under a stable key. Key must be globally
// unique and immutable once registered; Filename names the logical file
// group the snapshot belongs to.
type Saveable interface {
	Key() string
	Filename() string

	// CaptureState returns the current state serialized as JSON. It may be
	// called off the application's primary execution context.
	CaptureState() ([]byte, error)

	// RestoreState applies a previously captured snapshot. It is always
	// invoked on the primary execution context and must tolerate an empty
	// payload when no prior data exists.
	RestoreState(data []byte) error
}

// SaveRecord is one saveable's captured state within a file. A persisted
// file is the encrypted JSON array of these records.
type SaveRecord struct {
	Key  string          `json:"Key"`
	Data json.RawMessage `json:"Data"`
}
