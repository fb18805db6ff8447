package repository

import (
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrTransientCall marks a store call that may succeed when retried.
	ErrTransientCall = errors.New("transient model call failure")
	// ErrCorruptedState marks a store that reported an inconsistent state
	// which a retry is expected to clear.
	ErrCorruptedState = errors.New("corrupted model state")
)

// IsTransient reports whether err is worth retrying: the transient sentinels
// and SQLite BUSY/LOCKED results.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransientCall) || errors.Is(err, ErrCorruptedState) {
		return true
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}
