package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "DOCBRO_"

// Load builds the EffectiveSettings for this process: defaults, then the
// YAML settings file if present, then DOCBRO_*-prefixed environment
// variables (spec §6), in that order of increasing precedence.
func Load() (*EffectiveSettings, error) {
	paths, err := ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("config: resolve paths: %w", err)
	}

	k := koanf.New(".")

	defaults := Defaults()
	defaultsYAML, err := yamlMarshalDefaults(defaults)
	if err != nil {
		return nil, fmt.Errorf("config: marshal defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(defaultsYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if content, err := os.ReadFile(paths.SettingsFile); err == nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load settings file %s: %w", paths.SettingsFile, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read settings file %s: %w", paths.SettingsFile, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		trimmed := strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(trimmed)
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	var settings EffectiveSettings
	if err := k.Unmarshal("", &settings); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	settings.Paths = paths

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// yamlMarshalDefaults renders the hardcoded defaults as YAML so they can be
// loaded through the same koanf pipeline as the file and env layers,
// keeping one unmarshal path for the whole struct.
func yamlMarshalDefaults(s EffectiveSettings) ([]byte, error) {
	return []byte(fmt.Sprintf(`
vector_backend: %s
embedder_model: %s
default_chunk_size: %d
default_chunk_overlap: %d
default_crawl_depth: %d
default_rate_limit: %v
mcp_read_only_host: %s
mcp_read_only_port: %d
mcp_admin_host: %s
mcp_admin_port: %d
log_level: %s
`,
		s.VectorBackend, s.EmbedderModel, s.DefaultChunkSize, s.DefaultChunkOverlap,
		s.DefaultCrawlDepth, s.DefaultRateLimit, s.MCPReadOnlyHost, s.MCPReadOnlyPort,
		s.MCPAdminHost, s.MCPAdminPort, s.LogLevel,
	)), nil
}
