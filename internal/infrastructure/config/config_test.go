package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
storage:
  database_path: /tmp/recon.db
server:
  port: 9090
  allowed_origins:
    - http://localhost:4000
matching:
  duplicate_window_days: 10
  bank_window_days: 3
  vendor_similarity_threshold: 0.9
  float_tolerance_cents: 5
observability:
  logging:
    level: debug
    format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/recon.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:4000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10, cfg.Matching.DuplicateWindowDays)
	assert.Equal(t, 3, cfg.Matching.BankWindowDays)
	assert.Equal(t, 0.9, cfg.Matching.VendorSimilarityThreshold)
	assert.Equal(t, 5, cfg.Matching.FloatToleranceCents)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.Equal(t, "json", cfg.Observability.Logging.Format)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	t.Setenv("TEST_RECON_DB", "/var/data/recon.db")

	yaml := `
storage:
  database_path: ${TEST_RECON_DB}
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/data/recon.db", cfg.Storage.DatabasePath)
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  database_path: x.db\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 7, cfg.Matching.DuplicateWindowDays)
	assert.Equal(t, 5, cfg.Matching.BankWindowDays)
	assert.Equal(t, 0.85, cfg.Matching.VendorSimilarityThreshold)
	assert.Equal(t, 1, cfg.Matching.FloatToleranceCents)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
	assert.NotEmpty(t, cfg.Server.AllowedOrigins)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BACKOFFICE_DB_PATH", "/tmp/env.db")
	t.Setenv("BACKOFFICE_PORT", "7070")
	t.Setenv("LOG_LEVEL", "warn")

	cfg := LoadFromEnv()

	assert.Equal(t, "/tmp/env.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Observability.Logging.Level)
	// env loading still fills engine defaults
	assert.Equal(t, 7, cfg.Matching.DuplicateWindowDays)
}

func TestLoadOrEnvWithPathFallsBack(t *testing.T) {
	cfg := LoadOrEnvWithPath(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NotNil(t, cfg)
	assert.Equal(t, 0.85, cfg.Matching.VendorSimilarityThreshold)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
