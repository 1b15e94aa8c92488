package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.Outbox.PollInterval)
	assert.True(t, cfg.Execution.StrictTransitions)
	assert.False(t, cfg.Execution.AllowParallelRuns)
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  driver: postgres
  driver_name: postgres
  host: db.internal
  port: 6543
  user: uat
  password: secret
  database: uat
  ssl_mode: require
execution:
  allow_parallel_runs: true
  strict_transitions: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.DriverName)
	assert.Equal(t, "host=db.internal port=6543 user=uat password=secret dbname=uat sslmode=require", cfg.Database.DSN())
	assert.True(t, cfg.Execution.AllowParallelRuns)
	assert.False(t, cfg.Execution.StrictTransitions)
}

func TestSQLiteDSN(t *testing.T) {
	cfg := DatabaseConfig{Driver: "sqlite", Path: "/tmp/uat.db"}
	assert.Equal(t, "file:/tmp/uat.db?_foreign_keys=on&_busy_timeout=5000", cfg.DSN())
}
