package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const fakeURL = "postgres://fake@localhost/fake"

// call is one statement seen by the fake driver.
type call struct {
	SQL  string
	Args []any
}

// fakePool is an in-memory Pool that records every driver interaction.
type fakePool struct {
	mu     sync.Mutex
	events []string
	calls  []call

	acquires atomic.Int32
	releases atomic.Int32

	acquireErr error
	beginErr   error

	// respond answers Query and Exec. Nil returns an empty result.
	respond func(sql string, args []any) (*fakeRows, error)
}

func (p *fakePool) record(ev string) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *fakePool) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *fakePool) Calls() []call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]call(nil), p.calls...)
}

func (p *fakePool) Acquire(ctx context.Context) (Conn, error) {
	p.record("acquire")
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquires.Add(1)
	return &fakeConn{pool: p}, nil
}

func (p *fakePool) Stat() PoolStats {
	acquired := p.acquires.Load() - p.releases.Load()
	return PoolStats{AcquiredConns: acquired, TotalConns: acquired, MaxConns: 4}
}

func (p *fakePool) Close() {
	p.record("close")
}

func (p *fakePool) run(verb, sql string, args []any) (*fakeRows, error) {
	p.mu.Lock()
	p.events = append(p.events, verb)
	p.calls = append(p.calls, call{SQL: sql, Args: args})
	respond := p.respond
	p.mu.Unlock()

	if respond == nil {
		return &fakeRows{}, nil
	}
	return respond(sql, args)
}

type fakeConn struct {
	pool     *fakePool
	released bool
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := c.pool.run("query", sql, args)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *fakeConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if _, err := c.pool.run("exec", sql, args); err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (c *fakeConn) BeginReadOnly(ctx context.Context) (Tx, error) {
	c.pool.record("begin ro")
	if c.pool.beginErr != nil {
		return nil, c.pool.beginErr
	}
	return &fakeTx{conn: c}, nil
}

func (c *fakeConn) Release() {
	if c.released {
		panic("connection released twice")
	}
	c.released = true
	c.pool.releases.Add(1)
	c.pool.record("release")
}

type fakeTx struct {
	conn *fakeConn
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.conn.Query(ctx, sql, args...)
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.conn.Exec(ctx, sql, args...)
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.conn.pool.record("rollback")
	return nil
}

// fakeRows implements pgx.Rows over static data.
type fakeRows struct {
	cols []string
	data [][]any
	err  error
	i    int
}

func rowsOf(cols []string, data ...[]any) *fakeRows {
	return &fakeRows{cols: cols, data: data}
}

func (r *fakeRows) Close()                        {}
func (r *fakeRows) Err() error                    { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.cols))
	for i, c := range r.cols {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return fds
}

func (r *fakeRows) Next() bool {
	if r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return errors.New("fakeRows: Scan not supported")
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.i-1], nil
}

// newTestGateway wires a gateway to fp through a PoolManager.
func newTestGateway(t *testing.T, fp *fakePool, opts ...Option) *Gateway {
	t.Helper()
	pm := NewPoolManager(PoolConfig{URL: fakeURL}, WithOpener(func(ctx context.Context, cfg PoolConfig) (Pool, error) {
		return fp, nil
	}))
	return New(pm, opts...)
}

// unconfiguredGateway has no connection string; its opener fails the test
// if it is ever reached.
func unconfiguredGateway(t *testing.T, opts ...Option) *Gateway {
	t.Helper()
	pm := NewPoolManager(PoolConfig{}, WithOpener(func(ctx context.Context, cfg PoolConfig) (Pool, error) {
		t.Error("opener called without a connection string")
		return nil, errors.New("unreachable")
	}))
	return New(pm, opts...)
}
