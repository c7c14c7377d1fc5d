package config

import (
	"os"
	"path/filepath"
)

// Paths is the resolved XDG layout described in spec §6. Each field is a
// directory or file path; callers are responsible for MkdirAll on the
// parent directory before first write.
type Paths struct {
	ConfigDir             string
	SettingsFile          string
	QueryTransformsFile   string
	DataDir               string
	MetaStoreFile         string
	VectorsDir            string
	CacheDir               string
	LogsDir                string
}

// ResolvePaths computes the XDG-based layout, falling back to the
// conventional ~/.config, ~/.local/share, ~/.cache when the XDG_* env vars
// are unset, matching the base-dir spec.
func ResolvePaths() (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, err
	}

	configHome := firstNonEmpty(os.Getenv("XDG_CONFIG_HOME"), filepath.Join(home, ".config"))
	dataHome := firstNonEmpty(os.Getenv("XDG_DATA_HOME"), filepath.Join(home, ".local", "share"))
	cacheHome := firstNonEmpty(os.Getenv("XDG_CACHE_HOME"), filepath.Join(home, ".cache"))

	configDir := filepath.Join(configHome, "docbro")
	dataDir := filepath.Join(dataHome, "docbro")
	cacheDir := filepath.Join(cacheHome, "docbro")

	return Paths{
		ConfigDir:           configDir,
		SettingsFile:        filepath.Join(configDir, "settings.yaml"),
		QueryTransformsFile: filepath.Join(configDir, "query_transformations.yaml"),
		DataDir:             dataDir,
		MetaStoreFile:       filepath.Join(dataDir, "metastore.db"),
		VectorsDir:          filepath.Join(dataDir, "vectors"),
		CacheDir:            cacheDir,
		LogsDir:             filepath.Join(cacheDir, "logs"),
	}, nil
}

// EnsureDirs creates every directory in Paths with owner-only permissions.
func (p Paths) EnsureDirs() error {
	for _, dir := range []string{p.ConfigDir, p.DataDir, p.VectorsDir, p.CacheDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
