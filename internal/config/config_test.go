package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Plugin.MaxRestartAttempts)
	assert.NotEmpty(t, cfg.Catalog.StoragePath)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default(t.TempDir())
	cfg.Log.Level = "debug"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", loaded.Log.Level)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("OATTY_LOG_LEVEL", "warn")
	t.Setenv("OATTY_CATALOG_PATH", "/tmp/custom-catalogs.yaml")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/tmp/custom-catalogs.yaml", cfg.Catalog.StoragePath)
}

func TestValidateRejectsBadLogFormat(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.Log.Format = "xml"
	assert.ErrorIs(t, Validate(cfg), ErrInvalidConfig)
}

func TestValidateRejectsNegativeRestartAttempts(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.Plugin.MaxRestartAttempts = -1
	assert.ErrorIs(t, Validate(cfg), ErrInvalidConfig)
}

func TestValidateRejectsEmptyCatalogPath(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.Catalog.StoragePath = ""
	assert.ErrorIs(t, Validate(cfg), ErrInvalidConfig)
}
