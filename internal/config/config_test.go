package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.DataRoot = "/srv/accountantiq"
	cfg.Server.Listen = "127.0.0.1:9000"
	cfg.Matcher.MinSimilarity = 70

	path := filepath.Join(t.TempDir(), "accountantiq.yaml")
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.DataRoot, got.DataRoot)
	assert.Equal(t, cfg.Server.Listen, got.Server.Listen)
	assert.Equal(t, cfg.Matcher.MinSimilarity, got.Matcher.MinSimilarity)
	assert.InDelta(t, cfg.Matcher.AutoCreateFloor, got.Matcher.AutoCreateFloor, 0.001)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "data", cfg.DataRoot)
	assert.Equal(t, ":8420", cfg.Server.Listen)
	assert.Equal(t, 60, cfg.Matcher.MinSimilarity)
	assert.InDelta(t, 0.80, cfg.Matcher.AutoCreateFloor, 0.001)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ACCOUNTANTIQ_DATA_ROOT", "/tmp/override")
	t.Setenv("ACCOUNTANTIQ_LISTEN", ":9999")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "/tmp/override", cfg.DataRoot)
	assert.Equal(t, ":9999", cfg.Server.Listen)
}

func TestEnvOverridesEmptyLeaveFileValues(t *testing.T) {
	cfg := Default()
	cfg.DataRoot = "/srv/books"
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "/srv/books", cfg.DataRoot)
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()

	// Missing file falls back to defaults.
	cfg, err := LoadOrDefault(filepath.Join(dir, "accountantiq.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.DataRoot)

	// Present file wins.
	saved := Default()
	saved.DataRoot = "/srv/books"
	path := filepath.Join(dir, "accountantiq.yaml")
	require.NoError(t, Save(path, saved))

	cfg, err = LoadOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/books", cfg.DataRoot)
}
