// Package db manages the local SQLite database holding batch drafts.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

var (
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
)

// GetDB returns the database connection at path, opening it and creating
// the schema on first use. Later calls return the same connection.
func GetDB(path string) (*sql.DB, error) {
	mu.Lock()
	defer mu.Unlock()

	if db != nil {
		if path != dbPath {
			return nil, fmt.Errorf("database already open at %s", dbPath)
		}
		return db, nil
	}

	conn, err := Open(path)
	if err != nil {
		return nil, err
	}
	db, dbPath = conn, path
	return db, nil
}

// Open opens a fresh connection at path and initializes the schema.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		conn.SetMaxOpenConns(1)
	}

	if err := InitSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return conn, nil
}

// Close closes the database connection
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if db != nil {
		err := db.Close()
		db, dbPath = nil, ""
		return err
	}
	return nil
}
