// Package metrics exposes Prometheus metrics for the database gateway.
//
// Metrics records one sample per dispatched operation through the gateway's
// Observer hook, and a collector reports connection pool occupancy at scrape
// time. Server publishes everything on /metrics next to a /health probe.
//
//	reg := metrics.NewRegistry(pools)
//	gw := database.New(pools, database.WithObserver(reg.Metrics))
//	srv := metrics.NewServer(":9090", "/metrics", reg)
//	if err := srv.Start(); err != nil { ... }
//	defer srv.Stop(ctx)
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"llmtools/internal/tools/database"
)

const namespace = "llmtools"

// Metrics contains the gateway's operation metrics.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	PoolUnavailable   prometheus.Counter
}

// NewMetrics creates unregistered gateway metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "operations_total",
				Help:      "Total number of dispatched database operations",
			},
			[]string{"operation", "status"},
		),

		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "operation_duration_seconds",
				Help:      "Database operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		PoolUnavailable: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "pool_unavailable_total",
				Help:      "Operations dispatched while no connection pool was available",
			},
		),
	}
}

// Collectors lists every metric for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.OperationsTotal, m.OperationDuration, m.PoolUnavailable}
}

// Observe implements database.Observer.
func (m *Metrics) Observe(_ context.Context, ev database.Event) {
	op := operationLabel(ev.Operation)
	status := "success"
	if !ev.Success {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(op, status).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(ev.Duration.Seconds())
	if ev.PoolUnavailable {
		m.PoolUnavailable.Inc()
	}
}

// operationLabel keeps label cardinality bounded: caller-supplied kinds
// outside the supported set collapse to "unknown".
func operationLabel(op string) string {
	for _, known := range database.Operations {
		if op == known {
			return op
		}
	}
	return "unknown"
}
