package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"llmtools/internal/logging"
)

// Gateway dispatches operation descriptors against a lazily created pool.
// It is safe for concurrent use.
type Gateway struct {
	pools    *PoolManager
	policy   IdentifierPolicy
	observer Observer
	now      func() time.Time
	slow     time.Duration
}

// DefaultSlowOperation is the threshold above which a finished operation is
// logged as a warning.
const DefaultSlowOperation = time.Second

// Option configures a Gateway.
type Option func(*Gateway)

// WithPolicy sets the identifier policy. The default is TrustPolicy.
func WithPolicy(p IdentifierPolicy) Option {
	return func(g *Gateway) {
		g.policy = p
	}
}

// WithObserver adds an observer. It may be given more than once.
func WithObserver(o Observer) Option {
	return func(g *Gateway) {
		if o == nil {
			return
		}
		if g.observer == nil {
			g.observer = o
			return
		}
		g.observer = MultiObserver{g.observer, o}
	}
}

// WithSlowOperation sets the slow operation log threshold. Non-positive
// values keep the default.
func WithSlowOperation(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.slow = d
		}
	}
}

// WithClock replaces time.Now for event timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// New returns a gateway that draws connections from pools. A nil manager
// behaves as an unconfigured one.
func New(pools *PoolManager, opts ...Option) *Gateway {
	g := &Gateway{
		pools:  pools,
		policy: TrustPolicy{},
		now:    time.Now,
		slow:   DefaultSlowOperation,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handle decodes a JSON argument object and dispatches it.
func (g *Gateway) Handle(ctx context.Context, raw []byte) Result {
	d, err := ParseDescriptor(raw)
	if err != nil {
		logging.GatewayWarn("rejected descriptor: %v", err)
		return invalidArguments(err)
	}
	return g.Dispatch(ctx, d)
}

// Dispatch runs one descriptor to completion on the calling goroutine.
func (g *Gateway) Dispatch(ctx context.Context, d Descriptor) Result {
	id := uuid.NewString()
	log := logging.WithRequestID(logging.CategoryGateway, id)

	kind, table := "", ""
	if d != nil {
		kind, table = d.Operation(), d.Table()
	}
	log.Debug("received operation %q table=%q", kind, table)

	timer := logging.StartTimer(logging.CategoryGateway, fmt.Sprintf("%s (req=%s)", kind, id))
	start := g.now()
	pool := g.pools.Ensure(ctx)
	if pool == nil {
		log.Debug("no database pool available")
	}

	var res Result
	switch a := d.(type) {
	case QueryArgs:
		res = g.Query(ctx, a)
	case CreateTableArgs:
		res = g.CreateTable(ctx, a)
	case InsertEntryArgs:
		res = g.InsertEntry(ctx, a)
	case DeleteTableArgs:
		res = g.DeleteTable(ctx, a)
	case UpdateEntryArgs:
		res = g.UpdateEntry(ctx, a)
	case DeleteEntryArgs:
		res = g.DeleteEntry(ctx, a)
	case ListTablesArgs:
		res = g.ListTables(ctx)
	case GetTableSchemaArgs:
		res = g.GetTableSchema(ctx, a)
	default:
		res = unknownOperation(kind)
	}

	elapsed := g.now().Sub(start)
	if res.IsError() {
		log.Warn("%s failed: %s", kind, res.Error)
	}
	timer.StopWithThreshold(g.slow)

	if g.observer != nil {
		g.observer.Observe(ctx, Event{
			ID:              id,
			Operation:       kind,
			Table:           table,
			Success:         !res.IsError(),
			Error:           res.Error,
			Duration:        elapsed,
			At:              start,
			PoolUnavailable: pool == nil,
		})
	}
	return res
}

// execute is the skeleton shared by every executor: obtain the pool, vet
// identifiers, borrow one connection and hand it back on every exit path.
func (g *Gateway) execute(ctx context.Context, label string, d Descriptor, run func(conn Conn) Result) (res Result) {
	pool := g.pools.Ensure(ctx)
	if pool == nil {
		return notInitialized()
	}

	for _, id := range identifiersOf(d) {
		if err := g.policy.Check(id.kind, id.name); err != nil {
			logging.GatewayWarn("%s: rejected %s identifier: %v", label, id.kind, err)
			return failed(label, err)
		}
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		logging.PoolError("acquire failed: %v", err)
		return failed(label, err)
	}
	defer conn.Release()
	logging.GatewayDebug("%s: connection acquired", label)

	defer func() {
		if r := recover(); r != nil {
			logging.GatewayError("%s panicked: %v", label, r)
			res = failed(label, fmt.Errorf("panic: %v", r))
		}
	}()

	return run(conn)
}
