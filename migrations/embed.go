// Package migrations embeds the SQL schema migrations for every backend.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// SQLite returns the migrations for the local SQLite key-value store.
func SQLite() (fs.FS, error) {
	return fs.Sub(FS, "sqlite")
}

// Postgres returns the migrations for the travel_plans/expenses tables.
func Postgres() (fs.FS, error) {
	return fs.Sub(FS, "postgres")
}
