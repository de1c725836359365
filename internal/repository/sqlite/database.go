package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Opener opens a connection pool for a database file
type Opener func(path string) (*sql.DB, error)

// OpenFile opens a SQLite database file with WAL journaling
func OpenFile(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	// SQLite serializes writers; one connection avoids busy errors.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Database owns the live connection to the database file and can swap it
// out while the file itself is copied.
type Database struct {
	path string
	open Opener

	mu sync.RWMutex
	db *sql.DB
}

// Open opens the database at path
func Open(path string, open Opener) (*Database, error) {
	if open == nil {
		open = OpenFile
	}
	db, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Database{path: path, open: open, db: db}, nil
}

// DB returns the current connection pool
func (d *Database) DB() *sql.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// Path returns the database file path
func (d *Database) Path() string {
	return d.path
}

// Exclusive closes the live connection, runs fn with the database file
// path, and reopens the connection whether or not fn succeeded.
func (d *Database) Exclusive(fn func(path string) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		if err := d.db.Close(); err != nil {
			return fmt.Errorf("close database: %w", err)
		}
		d.db = nil
	}

	fnErr := fn(d.path)

	db, err := d.open(d.path)
	if err != nil {
		return errors.Join(fnErr, fmt.Errorf("reopen database: %w", err))
	}
	d.db = db
	return fnErr
}

// Close closes the live connection
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}
