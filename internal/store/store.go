// Package store persists the rate catalog, billing records and billing
// counters.
package store

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// DefaultSequence names the billing counter used by the application.
const DefaultSequence = "billing"

// SQLite is the sqlite-backed rate catalog and billing record store.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an open sqlite database with applied migrations.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}
