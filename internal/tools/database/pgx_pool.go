package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenPgxPool builds a pgxpool.Pool. No connection is made until the first
// Acquire.
func OpenPgxPool(ctx context.Context, cfg PoolConfig) (Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	p, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return &pgxPool{pool: p}, nil
}

type pgxPool struct {
	pool *pgxpool.Pool
}

func (p *pgxPool) Acquire(ctx context.Context) (Conn, error) {
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxConn{Conn: c}, nil
}

func (p *pgxPool) Stat() PoolStats {
	s := p.pool.Stat()
	return PoolStats{
		AcquiredConns: s.AcquiredConns(),
		IdleConns:     s.IdleConns(),
		TotalConns:    s.TotalConns(),
		MaxConns:      s.MaxConns(),
	}
}

func (p *pgxPool) Close() {
	p.pool.Close()
}

type pgxConn struct {
	*pgxpool.Conn
}

func (c *pgxConn) BeginReadOnly(ctx context.Context) (Tx, error) {
	return c.Conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
}
