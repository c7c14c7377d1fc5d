package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLowercasesSchemeAndHost(t *testing.T) {
	got, err := Normalize("HTTPS://Example.COM/Path")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/Path", got)
}

func TestNormalizeStripsDefaultPort(t *testing.T) {
	got, err := Normalize("http://example.com:80/docs")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/docs", got)

	got, err = Normalize("https://example.com:443/docs")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/docs", got)
}

func TestNormalizeKeepsNonDefaultPort(t *testing.T) {
	got, err := Normalize("http://example.com:8080/docs")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com:8080/docs", got)
}

func TestNormalizeDropsFragment(t *testing.T) {
	got, err := Normalize("https://example.com/docs#section-1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/docs", got)
}

func TestNormalizeEmptyPathBecomesSlash(t *testing.T) {
	got, err := Normalize("https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", got)
}

func TestNormalizeTrailingSlashTrimmed(t *testing.T) {
	got, err := Normalize("https://example.com/docs/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/docs", got)
}

func TestRegistrableDomain(t *testing.T) {
	assert.Equal(t, "example.com", RegistrableDomain("docs.example.com"))
	assert.Equal(t, "example.com", RegistrableDomain("example.com"))
	assert.Equal(t, "example.com", RegistrableDomain("example.com:8080"))
}

func TestSameRegistrableDomain(t *testing.T) {
	assert.True(t, SameRegistrableDomain("example.com", "docs.example.com"))
	assert.False(t, SameRegistrableDomain("example.com", "other.org"))
}
