package database

import (
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by lookups that matched no row.
var ErrNotFound = errors.New("not found")

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// Find-or-create paths treat it as "already exists" and re-select.
func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrConstraint
	}
	return false
}
