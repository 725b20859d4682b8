package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load("", dir)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, dir, cfg.Storage.DataDir)
	assert.Equal(t, filepath.Join(dir, "medtrack.db"), cfg.Storage.SQLitePath)
	assert.Equal(t, "@every 1m", cfg.Engine.SweepInterval)
	assert.Equal(t, 2*time.Hour, cfg.GracePeriod())
	assert.Equal(t, 4*time.Hour, cfg.RecentLogWindow())
	assert.Equal(t, 30, cfg.Engine.AdherenceWindowDays)

	// A secret is generated when none is configured.
	assert.NotEmpty(t, cfg.Security.JWTSecret)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "medtrack.yaml")
	content := []byte(`
server:
  port: 9090
engine:
  grace_period_minutes: 60
  sweep_interval: "@every 5m"
security:
  jwt_secret: file-secret
`)
	require.NoError(t, os.WriteFile(path, content, 0600))

	cfg, err := Load(path, dir)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.GracePeriod())
	assert.Equal(t, "@every 5m", cfg.Engine.SweepInterval)
	assert.Equal(t, "file-secret", cfg.Security.JWTSecret)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "medtrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  grace_period_minutes: -5\n"), 0600))

	_, err := Load(path, dir)
	assert.Error(t, err)
}

func TestWriteFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "medtrack.yaml")

	cfg := Default(dir)
	cfg.Server.Port = 9999
	require.NoError(t, WriteFile(cfg, path))

	loaded, err := Load(path, dir)
	require.NoError(t, err)
	assert.Equal(t, 9999, loaded.Server.Port)
}
