package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chtemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Store.DataDir)
	assert.Equal(t, "data/fetch_cache.db", cfg.Store.CachePath)
	assert.Equal(t, 12, cfg.Store.CacheTTLHours)
	assert.Equal(t, 10, cfg.Store.MaxBackups)
	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.True(t, cfg.Fetch.RespectRobots)
	assert.InDelta(t, 0.5, cfg.Fetch.HostRequestsPerS, 0.001)
	assert.Equal(t, 200, cfg.Extract.ProximityChars)
	assert.InDelta(t, 0.3, cfg.Extract.MinConfidence, 0.001)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.Equal(t, 7, cfg.Pipeline.FreshnessDays)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chtemp(t)

	yaml := `
store:
  data_dir: /var/deals
fetch:
  timeout_secs: 10
pipeline:
  workers: 4
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/deals", cfg.Store.DataDir)
	assert.Equal(t, 10, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep defaults.
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
}

func TestValidate(t *testing.T) {
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	bad := *cfg
	bad.Pipeline.Workers = 0
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Store.DataDir = ""
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Extract.MinConfidence = 1.5
	assert.Error(t, bad.Validate())
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
