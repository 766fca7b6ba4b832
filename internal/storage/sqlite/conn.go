// Package sqlite is the embedded-database persistence layer. It opens a
// single-file SQLite database in WAL mode with a 15s busy timeout and
// foreign keys enabled, runs forward-only idempotent migrations on open,
// and implements storage.Store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/ridgeway/memkeep/internal/storage/sqlite/migrations"
)

// BusyTimeout is the driver-level lock wait budget.
const BusyTimeout = 15 * time.Second

// Storage is the SQLite-backed implementation of storage.Store.
type Storage struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the database at path, applies pragmas,
// and runs all pending migrations. Safe to call concurrently from multiple
// processes against the same file; WAL mode is what makes that safe.
func Open(ctx context.Context, path string) (*Storage, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path, BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single file-backed SQLite connection pool should serialize writers
	// through SQLite's own locking, not Go's; one connection avoids
	// SQLITE_BUSY churn between pooled connections racing each other.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := migrations.Apply(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	return &Storage{db: db, path: path}, nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	return s.db.Close()
}
