package record

import (
	"encoding/json"
	"strings"
	"time"

	"savesync/saveport"
)

// TimestampKeyPrefix marks the synthetic per-file timestamp record.
const TimestampKeyPrefix = "Timestamp_"

type timestampData struct {
	Timestamp string `json:"timestamp"`
}

// TimestampKey returns the record key of a file's timestamp record.
func TimestampKey(filename string) string {
	return TimestampKeyPrefix + filename
}

// IsTimestampKey reports whether key names a synthetic timestamp record.
// Timestamp records are never restored into application state.
func IsTimestampKey(key string) bool {
	return strings.HasPrefix(key, TimestampKeyPrefix)
}

// NewTimestamp builds a file's timestamp record for the given instant,
// recorded as RFC 3339 with nanoseconds in UTC.
func NewTimestamp(filename string, now time.Time) saveport.SaveRecord {
	data, _ := json.Marshal(timestampData{
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	})
	return saveport.SaveRecord{Key: TimestampKey(filename), Data: data}
}

// Timestamp finds and parses the timestamp record for filename. It returns
// false when the record is missing or does not parse; reconciliation treats
// both the same way.
func Timestamp(records []saveport.SaveRecord, filename string) (time.Time, bool) {
	key := TimestampKey(filename)
	for _, rec := range records {
		if rec.Key != key {
			continue
		}
		var data timestampData
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return time.Time{}, false
		}
		ts, err := time.Parse(time.RFC3339Nano, data.Timestamp)
		if err != nil {
			return time.Time{}, false
		}
		return ts.UTC(), true
	}
	return time.Time{}, false
}

// StripTimestamp returns records without the timestamp record for filename.
// Used when backfilling a fresh timestamp over an unusable one.
func StripTimestamp(records []saveport.SaveRecord, filename string) []saveport.SaveRecord {
	key := TimestampKey(filename)
	out := make([]saveport.SaveRecord, 0, len(records))
	for _, rec := range records {
		if rec.Key == key {
			continue
		}
		out = append(out, rec)
	}
	return out
}
