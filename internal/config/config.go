package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all llmtools configuration.
type Config struct {
	// Database gateway settings
	Database DatabaseConfig `yaml:"database"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Prometheus metrics endpoint
	Metrics MetricsConfig `yaml:"metrics"`

	// Operation audit trail
	Audit AuditConfig `yaml:"audit"`

	// NATS transport for serve mode
	NATS NATSConfig `yaml:"nats"`
}

// MetricsConfig configures the metrics HTTP server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// AuditConfig configures the SQLite audit trail.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			IdentifierPolicy: PolicyTrust,
			SlowOperation:    "1s",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},

		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
			Path:    "/metrics",
		},

		Audit: AuditConfig{
			Enabled: false,
			Path:    ".llmtools/audit.db",
		},

		NATS: NATSConfig{
			Subject:      "llmtools.tag.0x77",
			Queue:        "llmtools",
			MaxInFlight:  16,
			DrainTimeout: "10s",
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// defaults
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from .env files into the process
// environment. Variables already set are left alone and missing files are
// skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Database.URL = url
	}
	if v := os.Getenv("LLMTOOLS_DB_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid LLMTOOLS_DB_MAX_CONNS %q: %w", v, err)
		}
		c.Database.MaxConns = int32(n)
	}
	if p := os.Getenv("LLMTOOLS_IDENTIFIER_POLICY"); p != "" {
		c.Database.IdentifierPolicy = p
	}

	if lvl := os.Getenv("LLMTOOLS_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}

	if url := os.Getenv("NATS_URL"); url != "" {
		c.NATS.URL = url
	}

	if path := os.Getenv("LLMTOOLS_AUDIT_PATH"); path != "" {
		c.Audit.Path = path
		c.Audit.Enabled = true
	}

	if addr := os.Getenv("LLMTOOLS_METRICS_ADDR"); addr != "" {
		c.Metrics.Addr = addr
		c.Metrics.Enabled = true
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		return fmt.Errorf("audit enabled but audit.path is empty")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics enabled but metrics.addr is empty")
	}
	return nil
}
