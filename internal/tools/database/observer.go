package database

import (
	"context"
	"time"
)

// Event describes one finished dispatch.
type Event struct {
	ID        string
	Operation string
	Table     string
	Success   bool
	Error     string
	Duration  time.Duration
	At        time.Time

	// PoolUnavailable is set when no pool could be obtained.
	PoolUnavailable bool
}

// Observer receives an Event after every dispatch. Observe runs on the
// dispatching goroutine and must not block for long.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

// MultiObserver fans an event out in order.
type MultiObserver []Observer

// Observe implements Observer.
func (m MultiObserver) Observe(ctx context.Context, ev Event) {
	for _, o := range m {
		o.Observe(ctx, ev)
	}
}
