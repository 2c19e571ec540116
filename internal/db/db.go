// Package db opens the parity state database kept beside a corpus.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// StateDir is the corpus-relative directory holding parity state.
const StateDir = ".parity"

// FileName is the database file inside StateDir.
const FileName = "parity.db"

// Path returns the database path for a corpus root.
func Path(corpusRoot string) string {
	return filepath.Join(corpusRoot, StateDir, FileName)
}

// Open opens the database at path, creating the file and schema if needed.
func Open(path string) (*sql.DB, error) {
	// Ensure state directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", StateDir, err)
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps PRAGMA settings and serialises writers.
	conn.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := InitSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return conn, nil
}
