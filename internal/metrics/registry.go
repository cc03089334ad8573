package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"llmtools/internal/tools/database"
)

// PoolStatser reports pool occupancy. *database.PoolManager implements it.
type PoolStatser interface {
	Stats() (database.PoolStats, error)
}

// Registry is a private Prometheus registry holding gateway, pool and
// runtime metrics.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
}

// NewRegistry creates a registry. pools may be nil, in which case no pool
// gauges are exported.
func NewRegistry(pools PoolStatser) *Registry {
	r := &Registry{
		prometheusRegistry: prometheus.NewRegistry(),
		Metrics:            NewMetrics(),
	}

	r.prometheusRegistry.MustRegister(r.Metrics.Collectors()...)
	if pools != nil {
		r.prometheusRegistry.MustRegister(newPoolCollector(pools))
	}

	// Add Go runtime metrics
	r.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// poolCollector reads pool stats at scrape time.
type poolCollector struct {
	pools PoolStatser

	acquired *prometheus.Desc
	idle     *prometheus.Desc
	total    *prometheus.Desc
	max      *prometheus.Desc
}

func newPoolCollector(pools PoolStatser) *poolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", name), help, nil, nil)
	}
	return &poolCollector{
		pools:    pools,
		acquired: desc("acquired_connections", "Connections currently borrowed by operations"),
		idle:     desc("idle_connections", "Idle connections in the pool"),
		total:    desc("total_connections", "Open connections in the pool"),
		max:      desc("max_connections", "Configured maximum pool size"),
	}
}

// Describe implements prometheus.Collector.
func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
}

// Collect implements prometheus.Collector. Nothing is emitted until the pool
// exists.
func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	s, err := c.pools.Stats()
	if err != nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns))
}
