package database

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"llmtools/internal/logging"
)

// Querier runs statements. Implemented by pooled connections and by
// transactions.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Tx is a transaction that can be abandoned.
type Tx interface {
	Querier
	Rollback(ctx context.Context) error
}

// Conn is one connection borrowed from a Pool.
type Conn interface {
	Querier
	// BeginReadOnly starts a READ ONLY transaction.
	BeginReadOnly(ctx context.Context) (Tx, error)
	// Release returns the connection to its pool. It must be called exactly
	// once.
	Release()
}

// Pool lends connections.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
	Stat() PoolStats
	Close()
}

// PoolStats is a snapshot of pool occupancy.
type PoolStats struct {
	AcquiredConns int32
	IdleConns     int32
	TotalConns    int32
	MaxConns      int32
}

// PoolConfig configures the pool built by a PoolManager.
type PoolConfig struct {
	// URL is the connection string. Empty means the database is unavailable.
	URL string
	// MaxConns caps the pool. Zero keeps the driver default.
	MaxConns int32
}

// Opener builds a pool from config.
type Opener func(ctx context.Context, cfg PoolConfig) (Pool, error)

// PoolManager owns the process's single pool and creates it on first use.
type PoolManager struct {
	cfg  PoolConfig
	open Opener

	mu     sync.Mutex
	pool   Pool
	closed bool
}

// PoolOption configures a PoolManager.
type PoolOption func(*PoolManager)

// WithOpener replaces the pgxpool opener. Used by tests.
func WithOpener(open Opener) PoolOption {
	return func(m *PoolManager) {
		m.open = open
	}
}

// NewPoolManager returns a manager that has not connected yet.
func NewPoolManager(cfg PoolConfig, opts ...PoolOption) *PoolManager {
	m := &PoolManager{
		cfg:  cfg,
		open: OpenPgxPool,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ensure returns the pool, creating it if a connection string is configured.
// It returns nil when no connection string is set, after Close, or when
// construction failed; a failed construction is retried on the next call.
func (m *PoolManager) Ensure(ctx context.Context) Pool {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool != nil {
		return m.pool
	}
	if m.closed {
		logging.PoolDebug("pool requested after close")
		return nil
	}
	if m.cfg.URL == "" {
		return nil
	}

	p, err := m.open(ctx, m.cfg)
	if err != nil {
		logging.PoolError("failed to create connection pool: %v", err)
		return nil
	}
	m.pool = p
	logging.Pool("PostgreSQL connection pool initialized (max_conns=%d)", p.Stat().MaxConns)
	return p
}

// Configured reports whether a connection string was supplied.
func (m *PoolManager) Configured() bool {
	return m != nil && m.cfg.URL != ""
}

// Stats reports pool occupancy. It returns ErrNoPool before first use.
func (m *PoolManager) Stats() (PoolStats, error) {
	if m == nil {
		return PoolStats{}, ErrNoPool
	}
	m.mu.Lock()
	p := m.pool
	m.mu.Unlock()
	if p == nil {
		return PoolStats{}, ErrNoPool
	}
	return p.Stat(), nil
}

// Close closes the pool. Later calls to Ensure return nil.
func (m *PoolManager) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool != nil {
		m.pool.Close()
		m.pool = nil
		logging.Pool("PostgreSQL connection pool closed")
	}
	m.closed = true
}
