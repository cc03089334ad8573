package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides_Database(t *testing.T) {
	t.Run("DATABASE_URL sets connection string", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DATABASE_URL", "postgres://env@db/app")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, "postgres://env@db/app", cfg.Database.URL)
		assert.True(t, cfg.Database.PoolConfigured())
	})

	t.Run("empty DATABASE_URL keeps file value", func(t *testing.T) {
		clearEnv(t)

		cfg := &Config{Database: DatabaseConfig{URL: "postgres://file@db/app"}}
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, "postgres://file@db/app", cfg.Database.URL)
	})

	t.Run("LLMTOOLS_DB_MAX_CONNS parsed", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLMTOOLS_DB_MAX_CONNS", "12")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, int32(12), cfg.Database.MaxConns)
	})

	t.Run("LLMTOOLS_DB_MAX_CONNS rejects garbage", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLMTOOLS_DB_MAX_CONNS", "many")

		cfg := DefaultConfig()
		assert.Error(t, cfg.applyEnvOverrides())
	})

	t.Run("LLMTOOLS_IDENTIFIER_POLICY", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLMTOOLS_IDENTIFIER_POLICY", PolicyStrict)

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, PolicyStrict, cfg.Database.IdentifierPolicy)
	})
}

func TestEnvOverrides_Services(t *testing.T) {
	clearEnv(t)
	t.Setenv("NATS_URL", "nats://bus:4222")
	t.Setenv("LLMTOOLS_AUDIT_PATH", "/tmp/audit.db")
	t.Setenv("LLMTOOLS_METRICS_ADDR", ":9191")
	t.Setenv("LLMTOOLS_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnvOverrides())

	assert.Equal(t, "nats://bus:4222", cfg.NATS.URL)
	assert.Equal(t, "/tmp/audit.db", cfg.Audit.Path)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, ":9191", cfg.Metrics.Addr)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("DATABASE_URL=postgres://dotenv@db/app\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("DATABASE_URL") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), envPath))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://dotenv@db/app", cfg.Database.URL)
}

func TestLoadDotEnv_DoesNotOverrideExisting(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://shell@db/app")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("DATABASE_URL=postgres://dotenv@db/app\n"), 0644))

	require.NoError(t, LoadDotEnv(envPath))
	assert.Equal(t, "postgres://shell@db/app", os.Getenv("DATABASE_URL"))
}
