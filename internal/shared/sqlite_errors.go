// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import "strings"

// sqliteConflictMarkers are the error texts SQLite drivers use for lock
// contention between connections.
var sqliteConflictMarkers = []string{
	"SQLITE_BUSY",
	"SQLITE_LOCKED",
	"database is locked",
	"database table is locked",
}

// IsSQLiteConflictError reports whether err is a SQLite lock conflict that
// warrants a retry.
func IsSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, m := range sqliteConflictMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
