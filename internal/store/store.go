// Package store provides the SQLite-backed flat key-value record store
// shared by the usage ledger and its collaborators.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // register sqlite driver
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS state (
    key     TEXT PRIMARY KEY,
    value   TEXT NOT NULL
);
`

// Store is a flat string-keyed record store.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the XDG-compliant state database path.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "convgauge", "state.db")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "convgauge", "state.db")
}

// Open opens or creates the state database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the state database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the values for the requested keys. Keys with no stored value
// are absent from the result, never an error.
func (s *Store) Get(keys ...string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	for _, key := range keys {
		var value string
		err := s.db.QueryRow("SELECT value FROM state WHERE key = ?", key).Scan(&value)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading key %q: %w", key, err)
		}
		result[key] = value
	}
	return result, nil
}

// Set upserts a partial record in a single transaction. Keys not named are
// left untouched, so independent writers never clobber each other's keys.
func (s *Store) Set(record map[string]string) error {
	if len(record) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for key, value := range record {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO state (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("writing key %q: %w", key, err)
		}
	}

	return tx.Commit()
}
