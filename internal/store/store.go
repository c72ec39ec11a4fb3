// Package store provides the sqlite-backed persistence layer for all
// taskctl entities (spec.md §4.B, §6).
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// Store wraps the sqlite connection and the per-process file lock that
// serialises mutations against it (spec.md §5: "serialised against the
// store by per-process locking").
type Store struct {
	*sql.DB
	lock *flock.Flock
}

// Open creates or opens the sqlite database at dbPath, applying the same
// WAL/busy-timeout/foreign-keys pragma string the teacher uses
// (internal/db/sqlite.go Open), and acquires an exclusive per-process lock
// on a sibling ".lock" file before returning.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	lock := flock.New(dbPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire store lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("store is locked by another taskctl process: %s", dbPath+".lock")
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// A single-writer sqlite connection avoids "database is locked" races
	// between the flock-serialised process and its own goroutines.
	db.SetMaxOpenConns(1)

	return &Store{DB: db, lock: lock}, nil
}

// Close closes the database connection and releases the process lock.
func (s *Store) Close() error {
	err := s.DB.Close()
	if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
		err = unlockErr
	}
	return err
}

// Migrate applies every schema migration, in dependency order.
func (s *Store) Migrate() error {
	for i, m := range migrations {
		if _, err := s.Exec(m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
