// Package device captures the identity of the machine writing a save
// profile. The identity is persisted into its own dedicated file on every
// explicit save and is used solely for whole-profile conflict detection; it
// never flows through per-file replica reconciliation.
package device

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"savesync/saveport"
)

// RecordKey is the key of the identity record inside the identity file.
const RecordKey = "DeviceIdentity"

// uidFile holds the generated device id under the data directory.
const uidFile = "device.uid"

// Identity describes the device that last wrote a save profile, plus the
// instant it was captured.
type Identity struct {
	Name      string `json:"deviceName"`
	Type      string `json:"deviceType"`
	Model     string `json:"deviceModel"`
	UniqueID  string `json:"deviceUniqueId"`
	OS        string `json:"deviceOS"`
	Timestamp string `json:"timestamp"`
}

// Capture assembles the local device identity. The unique id is read from
// dataDir/device.uid; if the file does not exist, a new id is generated and
// persisted so the same installation keeps its identity across runs.
// name overrides the hostname when non-empty.
func Capture(dataDir, name string, now time.Time) (Identity, error) {
	uid, err := loadOrCreateID(dataDir)
	if err != nil {
		return Identity{}, err
	}
	if name == "" {
		name, _ = os.Hostname()
	}
	return Identity{
		Name:      name,
		Type:      classify(runtime.GOOS),
		Model:     runtime.GOARCH,
		UniqueID:  uid,
		OS:        runtime.GOOS,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}, nil
}

// Ephemeral returns an identity with a throwaway unique id. Useful for
// tests and for embedders that manage identity persistence themselves.
func Ephemeral(now time.Time) Identity {
	name, _ := os.Hostname()
	return Identity{
		Name:      name,
		Type:      classify(runtime.GOOS),
		Model:     runtime.GOARCH,
		UniqueID:  uuid.New().String(),
		OS:        runtime.GOOS,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}

// Record serializes the identity as its save record.
func (id Identity) Record() (saveport.SaveRecord, error) {
	data, err := json.Marshal(id)
	if err != nil {
		return saveport.SaveRecord{}, fmt.Errorf("marshal device identity: %w", err)
	}
	return saveport.SaveRecord{Key: RecordKey, Data: data}, nil
}

// FromRecords extracts the identity record from a decoded file, if present.
func FromRecords(records []saveport.SaveRecord) (Identity, bool) {
	for _, rec := range records {
		if rec.Key != RecordKey {
			continue
		}
		var id Identity
		if err := json.Unmarshal(rec.Data, &id); err != nil {
			return Identity{}, false
		}
		return id, true
	}
	return Identity{}, false
}

func loadOrCreateID(dataDir string) (string, error) {
	path := filepath.Join(dataDir, uidFile)

	raw, err := os.ReadFile(path)
	if err == nil {
		uid := strings.TrimSpace(string(raw))
		if _, perr := uuid.Parse(uid); perr == nil {
			return uid, nil
		}
		// Corrupt id file: regenerate rather than fail startup.
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("reading device id: %w", err)
	}

	uid := uuid.New().String()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", fmt.Errorf("creating data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(uid+"\n"), 0600); err != nil {
		return "", fmt.Errorf("writing device id: %w", err)
	}
	return uid, nil
}

func classify(goos string) string {
	switch goos {
	case "android", "ios":
		return "handheld"
	default:
		return "desktop"
	}
}
