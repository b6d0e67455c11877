// Package migrations embeds the SQL schema for the credential store and the
// search index.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Postgres returns the credential store migrations
func Postgres() (fs.FS, error) {
	return fs.Sub(files, "postgres")
}

// SQLite returns the search index migrations
func SQLite() (fs.FS, error) {
	return fs.Sub(files, "sqlite")
}
