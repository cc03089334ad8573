// Package audit keeps a local SQLite trail of dispatched database
// operations. The store is an Observer on the gateway: a failed write is
// logged and never alters the operation's result.
package audit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	_ "modernc.org/sqlite"

	"llmtools/internal/logging"
	"llmtools/internal/tools/database"
)

const (
	driverName      = "sqlite"
	migrationsTable = "audit_migrations"
	sqlDialect      = "sqlite3"

	// DefaultLimit is used by Recent when limit is not positive.
	DefaultLimit = 20
)

// ErrClosed is returned by Store methods after Close.
var ErrClosed = errors.New("audit store closed")

var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "0001_operations",
			Up: []string{`
CREATE TABLE operations (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL,
	operation TEXT NOT NULL,
	table_name TEXT NOT NULL DEFAULT '',
	success INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL,
	created_at_ms INTEGER NOT NULL
)`,
				`CREATE INDEX idx_operations_created ON operations(created_at_ms)`,
			},
			Down: []string{`DROP TABLE operations`},
		},
		{
			Id:   "0002_pool_unavailable",
			Up:   []string{`ALTER TABLE operations ADD COLUMN pool_unavailable INTEGER NOT NULL DEFAULT 0`},
			Down: []string{`ALTER TABLE operations DROP COLUMN pool_unavailable`},
		},
	},
}

var migrateOnce sync.Once

// Entry is one audited dispatch.
type Entry struct {
	Seq             int64  `db:"seq"`
	ID              string `db:"id"`
	Operation       string `db:"operation"`
	TableName       string `db:"table_name"`
	Success         bool   `db:"success"`
	Error           string `db:"error"`
	DurationMs      int64  `db:"duration_ms"`
	CreatedAtMs     int64  `db:"created_at_ms"`
	PoolUnavailable bool   `db:"pool_unavailable"`
}

// EntryFromEvent converts a gateway event.
func EntryFromEvent(ev database.Event) Entry {
	return Entry{
		ID:              ev.ID,
		Operation:       ev.Operation,
		TableName:       ev.Table,
		Success:         ev.Success,
		Error:           ev.Error,
		DurationMs:      ev.Duration.Milliseconds(),
		CreatedAtMs:     ev.At.UnixMilli(),
		PoolUnavailable: ev.PoolUnavailable,
	}
}

// Store is the SQLite-backed audit trail.
type Store struct {
	db   *sqlx.DB
	path string

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the audit database at path and applies pending
// migrations. ":memory:" gives a private in-memory store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	// SQLite serializes writers; one connection also keeps :memory: alive.
	db.SetMaxOpenConns(1)

	migrateOnce.Do(func() { migrate.SetTable(migrationsTable) })
	n, err := migrate.Exec(db.DB, sqlDialect, migrations, migrate.Up)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate audit database: %w", err)
	}
	if n > 0 {
		logging.Audit("applied %d audit migrations to %s", n, path)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Record appends one entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	_, err := s.db.NamedExecContext(ctx, `
INSERT INTO operations (id, operation, table_name, success, error, duration_ms, created_at_ms, pool_unavailable)
VALUES (:id, :operation, :table_name, :success, :error, :duration_ms, :created_at_ms, :pool_unavailable)`, e)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var out []Entry
	err := s.db.SelectContext(ctx, &out, `
SELECT seq, id, operation, table_name, success, error, duration_ms, created_at_ms, pool_unavailable
FROM operations ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit entries: %w", err)
	}
	return out, nil
}

// Count returns the number of recorded entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}

	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM operations`); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return n, nil
}

// Observe implements database.Observer. The write outlives the caller's
// cancellation.
func (s *Store) Observe(ctx context.Context, ev database.Event) {
	if err := s.Record(context.WithoutCancel(ctx), EntryFromEvent(ev)); err != nil {
		logging.AuditError("%s %s: %v", ev.ID, ev.Operation, err)
	}
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
