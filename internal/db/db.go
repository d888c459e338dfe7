// Package db opens the SQLite database backing the sprint journal.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (creating if needed) the journal database at path and applies
// the schema. The caller owns the returned handle.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal dir: %w", err)
	}
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	if _, err := database.Exec(GetSchemaSQL()); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return database, nil
}
