package main

import (
	"fmt"

	"llmtools/internal/audit"
	"llmtools/internal/config"
	"llmtools/internal/logging"
	"llmtools/internal/metrics"
	"llmtools/internal/tools"
	"llmtools/internal/tools/database"
)

// runtime wires the gateway, its observers and the tool registry for one
// process.
type runtime struct {
	pools    *database.PoolManager
	gateway  *database.Gateway
	registry *tools.Registry
	audit    *audit.Store
	metrics  *metrics.Registry
}

func newRuntime(c *config.Config) (*runtime, error) {
	policy, err := database.PolicyFor(c.Database.IdentifierPolicy)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		pools: database.NewPoolManager(database.PoolConfig{
			URL:      c.Database.URL,
			MaxConns: c.Database.MaxConns,
		}),
		registry: tools.NewRegistry(),
	}
	if !rt.pools.Configured() {
		logging.Boot("DATABASE_URL not set; every operation will report the connection as not initialized")
	}

	opts := []database.Option{
		database.WithPolicy(policy),
		database.WithSlowOperation(c.Database.GetSlowOperation()),
	}

	if c.Audit.Enabled {
		store, err := audit.Open(c.Audit.Path)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.audit = store
		opts = append(opts, database.WithObserver(store))
	}

	if c.Metrics.Enabled {
		rt.metrics = metrics.NewRegistry(rt.pools)
		opts = append(opts, database.WithObserver(rt.metrics.Metrics))
	}

	rt.gateway = database.New(rt.pools, opts...)
	if err := database.RegisterAll(rt.registry, rt.gateway); err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	return rt, nil
}

// Close releases the pool and the audit store.
func (rt *runtime) Close() error {
	rt.pools.Close()
	if rt.audit != nil {
		return rt.audit.Close()
	}
	return nil
}
