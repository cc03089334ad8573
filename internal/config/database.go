package config

import (
	"fmt"
	"time"
)

// Identifier policies for table and column names.
const (
	PolicyTrust  = "trust"
	PolicyStrict = "strict"
)

// DatabaseConfig configures the PostgreSQL operations gateway.
type DatabaseConfig struct {
	// URL is the connection string. Empty means the database is unavailable
	// for the lifetime of the process; it is not a startup failure.
	URL string `yaml:"url"`

	// MaxConns caps the pool size. Zero keeps the driver default.
	MaxConns int32 `yaml:"max_conns"`

	// IdentifierPolicy is "trust" (default) or "strict".
	IdentifierPolicy string `yaml:"identifier_policy"`

	// SlowOperation is the duration after which a finished operation is
	// logged as a warning.
	SlowOperation string `yaml:"slow_operation"`
}

// GetSlowOperation returns the slow operation threshold as a duration.
func (d DatabaseConfig) GetSlowOperation() time.Duration {
	t, err := time.ParseDuration(d.SlowOperation)
	if err != nil || t <= 0 {
		return time.Second
	}
	return t
}

// PoolConfigured reports whether a connection string is set.
func (d DatabaseConfig) PoolConfigured() bool {
	return d.URL != ""
}

// Validate checks the database section.
func (d DatabaseConfig) Validate() error {
	if d.MaxConns < 0 {
		return fmt.Errorf("database.max_conns must be >= 0, got %d", d.MaxConns)
	}
	switch d.IdentifierPolicy {
	case "", PolicyTrust, PolicyStrict:
		return nil
	default:
		return fmt.Errorf("invalid database.identifier_policy: %s (valid: %s, %s)",
			d.IdentifierPolicy, PolicyTrust, PolicyStrict)
	}
}
