package repository

import (
	"database/sql"
	"sync"
	"time"
)

const dateLayout = "2006-01-02"

// parseNullableTime parses a sql.NullString into a *time.Time using the given layout.
// Returns nil if the value is NULL, empty, or fails to parse.
func parseNullableTime(s sql.NullString, layout string) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(layout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// nullableTimeToString converts a *time.Time to a value suitable for SQLite storage.
// Returns nil (SQL NULL) if the pointer is nil, otherwise returns the formatted string.
func nullableTimeToString(t *time.Time, layout string) any {
	if t == nil {
		return nil
	}
	return t.Format(layout)
}

// nullableKey converts an optional node key to a SQLite value.
func nullableKey(k *int64) any {
	if k == nil {
		return nil
	}
	return *k
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}

// timestampLayout is fixed-width, so stored timestamps order correctly as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	clockMu  sync.Mutex
	lastTick time.Time
)

// nowUTC returns the current UTC time in timestampLayout. Successive calls
// within the process return strictly increasing values.
func nowUTC() string {
	clockMu.Lock()
	defer clockMu.Unlock()
	t := time.Now().UTC()
	if !t.After(lastTick) {
		t = lastTick.Add(time.Nanosecond)
	}
	lastTick = t
	return t.Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
