package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePathsUsesXDGEnvWhenSet(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdgcfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdgdata")
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdgcache")

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdgcfg", "docbro"), paths.ConfigDir)
	assert.Equal(t, filepath.Join("/tmp/xdgdata", "docbro"), paths.DataDir)
	assert.Equal(t, filepath.Join("/tmp/xdgcache", "docbro"), paths.CacheDir)
	assert.Equal(t, filepath.Join(paths.ConfigDir, "settings.yaml"), paths.SettingsFile)
	assert.Equal(t, filepath.Join(paths.DataDir, "metastore.db"), paths.MetaStoreFile)
	assert.Equal(t, filepath.Join(paths.DataDir, "vectors"), paths.VectorsDir)
	assert.Equal(t, filepath.Join(paths.CacheDir, "logs"), paths.LogsDir)
}

func TestResolvePathsFallsBackToHomeWhenXDGUnset(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "/tmp/fakehome")

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/fakehome", ".config", "docbro"), paths.ConfigDir)
	assert.Equal(t, filepath.Join("/tmp/fakehome", ".local", "share", "docbro"), paths.DataDir)
	assert.Equal(t, filepath.Join("/tmp/fakehome", ".cache", "docbro"), paths.CacheDir)
}

func TestEnsureDirsCreatesEveryDir(t *testing.T) {
	base := t.TempDir()
	paths := Paths{
		ConfigDir: filepath.Join(base, "config"),
		DataDir:   filepath.Join(base, "data"),
		VectorsDir: filepath.Join(base, "data", "vectors"),
		CacheDir:  filepath.Join(base, "cache"),
		LogsDir:   filepath.Join(base, "cache", "logs"),
	}
	require.NoError(t, paths.EnsureDirs())

	for _, dir := range []string{paths.ConfigDir, paths.DataDir, paths.VectorsDir, paths.CacheDir, paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
