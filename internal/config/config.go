// Package config builds the single immutable EffectiveSettings value
// DocBro constructs once at startup and passes by reference to every
// downstream component (spec §9 "config layering" guidance). Layering is
// environment > file > hardcoded default, exactly the teacher's
// precedence, using github.com/knadh/koanf/v2.
package config

import (
	"net"

	"github.com/behemotion/docbro/internal/errs"
)

// VectorBackend selects the VectorStore driver (spec §4.B).
type VectorBackend string

const (
	VectorBackendEmbedded VectorBackend = "embedded"
	VectorBackendRemote   VectorBackend = "remote"
)

// LogLevel mirrors spec §6's recognized log_level values.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// EffectiveSettings is the fully resolved, validated configuration for one
// DocBro process. It is built once (see Load) and never mutated; components
// receive a *EffectiveSettings and read from it concurrently.
type EffectiveSettings struct {
	VectorBackend    VectorBackend `koanf:"vector_backend"`
	RemoteVectorURL  string        `koanf:"remote_vector_url"`

	EmbedderURL   string `koanf:"embedder_url"`
	EmbedderModel string `koanf:"embedder_model"`

	DefaultChunkSize    int `koanf:"default_chunk_size"`
	DefaultChunkOverlap int `koanf:"default_chunk_overlap"`

	DefaultCrawlDepth int     `koanf:"default_crawl_depth"`
	DefaultRateLimit  float64 `koanf:"default_rate_limit"`

	MCPReadOnlyHost string `koanf:"mcp_read_only_host"`
	MCPReadOnlyPort int    `koanf:"mcp_read_only_port"`
	MCPAdminHost    string `koanf:"mcp_admin_host"`
	MCPAdminPort    int    `koanf:"mcp_admin_port"`

	LogLevel LogLevel `koanf:"log_level"`

	// Paths is the resolved XDG layout (spec §6); not itself an overridable
	// settings key but derived at Load time.
	Paths Paths `koanf:"-"`
}

// Defaults returns the hardcoded baseline, the lowest layer of precedence.
func Defaults() EffectiveSettings {
	return EffectiveSettings{
		VectorBackend:       VectorBackendEmbedded,
		EmbedderModel:       "mxbai-embed-large",
		DefaultChunkSize:    500,
		DefaultChunkOverlap: 50,
		DefaultCrawlDepth:   3,
		DefaultRateLimit:    1.0,
		MCPReadOnlyHost:     "0.0.0.0",
		MCPReadOnlyPort:     9383,
		MCPAdminHost:        "127.0.0.1",
		MCPAdminPort:        9384,
		LogLevel:            LogInfo,
	}
}

// Validate enforces the invariants Load cannot skip, notably that the admin
// MCP server is never configured to bind off loopback (spec §6: "not
// overridable"; spec §8 boundary test: admin server bound to a non-loopback
// address fails startup with ConfigError).
func (s *EffectiveSettings) Validate() error {
	if s.MCPAdminHost != "127.0.0.1" {
		return errs.Newf(errs.ConfigError, "config: mcp_admin_host must be the loopback address 127.0.0.1, got %q", s.MCPAdminHost)
	}
	if ip := net.ParseIP(s.MCPAdminHost); ip == nil || !ip.IsLoopback() {
		return errs.Newf(errs.ConfigError, "config: mcp_admin_host %q is not a loopback address", s.MCPAdminHost)
	}
	if s.DefaultChunkOverlap >= s.DefaultChunkSize/2 {
		return errs.New(errs.ConfigError, "config: default_chunk_overlap must be < default_chunk_size/2")
	}
	if s.VectorBackend != VectorBackendEmbedded && s.VectorBackend != VectorBackendRemote {
		return errs.Newf(errs.ConfigError, "config: vector_backend must be embedded or remote, got %q", s.VectorBackend)
	}
	if s.VectorBackend == VectorBackendRemote && s.RemoteVectorURL == "" {
		return errs.New(errs.ConfigError, "config: remote_vector_url is required when vector_backend=remote")
	}
	switch s.LogLevel {
	case LogDebug, LogInfo, LogWarn, LogError:
	default:
		return errs.Newf(errs.ConfigError, "config: invalid log_level %q", s.LogLevel)
	}
	return nil
}
