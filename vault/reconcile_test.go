package vault

import (
	"encoding/json"
	"testing"
	"time"

	"savesync/record"
	"savesync/saveport"
)

func stamped(filename, marker string, ts time.Time) []saveport.SaveRecord {
	return []saveport.SaveRecord{
		record.NewTimestamp(filename, ts),
		{Key: "P", Data: json.RawMessage(`{"v":"` + marker + `"}`)},
	}
}

func unstamped(marker string) []saveport.SaveRecord {
	return []saveport.SaveRecord{
		{Key: "P", Data: json.RawMessage(`{"v":"` + marker + `"}`)},
	}
}

func marker(t *testing.T, records []saveport.SaveRecord) string {
	t.Helper()
	for _, rec := range records {
		if rec.Key != "P" {
			continue
		}
		var data struct {
			V string `json:"v"`
		}
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			t.Fatalf("unmarshal marker: %v", err)
		}
		return data.V
	}
	t.Fatal("no marker record")
	return ""
}

func TestResolveDecisionTable(t *testing.T) {
	const file = "game.dat"
	t1 := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	tests := []struct {
		name       string
		local      replica
		remote     replica
		netErr     bool
		wantOK     bool
		wantMarker string
		wantResync bool
	}{
		{
			name:   "both absent",
			wantOK: false,
		},
		{
			name:       "remote only",
			remote:     replica{stamped(file, "R", t1), true},
			wantOK:     true,
			wantMarker: "R",
			wantResync: false,
		},
		{
			name:       "local only",
			local:      replica{stamped(file, "L", t1), true},
			wantOK:     true,
			wantMarker: "L",
			wantResync: true,
		},
		{
			name:       "local only with network error",
			local:      replica{stamped(file, "L", t1), true},
			netErr:     true,
			wantOK:     true,
			wantMarker: "L",
			wantResync: false,
		},
		{
			name:       "only local stamped",
			local:      replica{stamped(file, "L", t1), true},
			remote:     replica{unstamped("R"), true},
			wantOK:     true,
			wantMarker: "L",
			wantResync: true,
		},
		{
			name:       "only local stamped with network error",
			local:      replica{stamped(file, "L", t1), true},
			remote:     replica{unstamped("R"), true},
			netErr:     true,
			wantOK:     true,
			wantMarker: "L",
			wantResync: false,
		},
		{
			name:       "only remote stamped",
			local:      replica{unstamped("L"), true},
			remote:     replica{stamped(file, "R", t1), true},
			wantOK:     true,
			wantMarker: "R",
			wantResync: true,
		},
		{
			name:       "only remote stamped with network error",
			local:      replica{unstamped("L"), true},
			remote:     replica{stamped(file, "R", t1), true},
			netErr:     true,
			wantOK:     true,
			wantMarker: "R",
			wantResync: true,
		},
		{
			name:       "neither stamped backfills",
			local:      replica{unstamped("L"), true},
			remote:     replica{unstamped("R"), true},
			wantOK:     true,
			wantMarker: "R",
			wantResync: true,
		},
		{
			name:       "local newer wins",
			local:      replica{stamped(file, "L", t2), true},
			remote:     replica{stamped(file, "R", t1), true},
			wantOK:     true,
			wantMarker: "L",
			wantResync: true,
		},
		{
			name:       "remote newer wins",
			local:      replica{stamped(file, "L", t1), true},
			remote:     replica{stamped(file, "R", t2), true},
			wantOK:     true,
			wantMarker: "R",
			wantResync: true,
		},
		{
			name:       "equal timestamps prefer remote",
			local:      replica{stamped(file, "L", t1), true},
			remote:     replica{stamped(file, "R", t1), true},
			wantOK:     true,
			wantMarker: "R",
			wantResync: false,
		},
		{
			name:       "unparsable local timestamp treated as missing",
			local:      replica{[]saveport.SaveRecord{{Key: record.TimestampKey(file), Data: json.RawMessage(`{"timestamp":"???"}`)}, {Key: "P", Data: json.RawMessage(`{"v":"L"}`)}}, true},
			remote:     replica{stamped(file, "R", t1), true},
			wantOK:     true,
			wantMarker: "R",
			wantResync: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolve(file, tt.local, tt.remote, tt.netErr)
			if got.ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", got.ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			if m := marker(t, got.records); m != tt.wantMarker {
				t.Errorf("winner = %q, want %q", m, tt.wantMarker)
			}
			if got.resync != tt.wantResync {
				t.Errorf("resync = %v, want %v", got.resync, tt.wantResync)
			}
		})
	}
}
