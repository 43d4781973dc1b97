package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDirRespectsXDGConfigHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, "oatty"), dir)
}

func TestConfigPathIsUnderConfigDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	path, err := ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, "oatty", "config.yaml"), path)
}

func TestDataDirRespectsXDGDataHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	dir, err := DataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, "oatty"), dir)
}
