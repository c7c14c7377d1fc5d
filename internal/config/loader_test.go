package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setXDGHome(t *testing.T, base string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "cache"))
}

func TestLoadUsesHardcodedDefaultsWhenNoFileOrEnv(t *testing.T) {
	setXDGHome(t, t.TempDir())

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, VectorBackendEmbedded, settings.VectorBackend)
	assert.Equal(t, "mxbai-embed-large", settings.EmbedderModel)
	assert.Equal(t, 500, settings.DefaultChunkSize)
}

func TestLoadSettingsFileOverridesDefaults(t *testing.T) {
	base := t.TempDir()
	setXDGHome(t, base)

	configDir := filepath.Join(base, "config", "docbro")
	require.NoError(t, os.MkdirAll(configDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "settings.yaml"), []byte("embedder_model: bge-small\ndefault_chunk_size: 800\n"), 0o600))

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "bge-small", settings.EmbedderModel)
	assert.Equal(t, 800, settings.DefaultChunkSize)
}

func TestLoadEnvOverridesFileAndDefaults(t *testing.T) {
	base := t.TempDir()
	setXDGHome(t, base)

	configDir := filepath.Join(base, "config", "docbro")
	require.NoError(t, os.MkdirAll(configDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "settings.yaml"), []byte("embedder_model: bge-small\n"), 0o600))

	t.Setenv("DOCBRO_EMBEDDER_MODEL", "bge-large-env")

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "bge-large-env", settings.EmbedderModel)
}

func TestLoadFailsValidationOnBadEnvOverride(t *testing.T) {
	setXDGHome(t, t.TempDir())
	t.Setenv("DOCBRO_MCP_ADMIN_HOST", "0.0.0.0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loopback")
}
