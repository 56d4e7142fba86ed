package storage

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB holds the two logical connections to the note index: a single-writer
// read/write connection and a read-only connection for query surfaces.
// The filesystem is the source of truth; everything here can be rebuilt.
type DB struct {
	rw *sql.DB
	ro *sql.DB

	// writeMu serialises write transactions. SQLite would queue them anyway,
	// but holding the lock across the file write and the index transaction
	// is what makes a note mutation one critical section.
	writeMu sync.Mutex
}

// Open opens (creating if needed) the index database at path.
func Open(path string) (*DB, error) {
	rwDSN := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	rw, err := sql.Open("sqlite3", rwDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer. Extra RW connections would only contend on SQLite's lock.
	rw.SetMaxOpenConns(1)

	exists, err := SchemaExists(rw)
	if err != nil {
		rw.Close()
		return nil, err
	}
	if !exists {
		if err := CreateSchema(rw); err != nil {
			rw.Close()
			return nil, err
		}
	}

	roDSN := fmt.Sprintf("file:%s?mode=ro&_foreign_keys=on&_busy_timeout=5000", path)
	ro, err := sql.Open("sqlite3", roDSN)
	if err != nil {
		rw.Close()
		return nil, fmt.Errorf("failed to open read-only database: %w", err)
	}

	return &DB{rw: rw, ro: ro}, nil
}

// RO returns the read-only connection. INSERT/UPDATE/DELETE on it fail with
// a "readonly database" error from the driver.
func (d *DB) RO() *sql.DB {
	return d.ro
}

// RW returns the read/write connection. Callers mutating state should prefer
// WriteTx.
func (d *DB) RW() *sql.DB {
	return d.rw
}

// WriteTx runs fn inside the single-writer critical section and a
// transaction. The transaction is rolled back when fn returns an error.
func (d *DB) WriteTx(fn func(tx *sql.Tx) error) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return d.WriteTxLocked(fn)
}

// Lock enters the single-writer critical section without starting a
// transaction. The note store uses it to cover the file write and the index
// transaction together.
func (d *DB) Lock() { d.writeMu.Lock() }

// Unlock leaves the critical section.
func (d *DB) Unlock() { d.writeMu.Unlock() }

// WriteTxLocked runs fn in a transaction, assuming the caller holds Lock.
func (d *DB) WriteTxLocked(fn func(tx *sql.Tx) error) error {
	tx, err := d.rw.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin write transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit write transaction: %w", err)
	}
	return nil
}

// Close closes both connections.
func (d *DB) Close() error {
	var firstErr error
	if err := d.ro.Close(); err != nil {
		firstErr = err
	}
	if err := d.rw.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
