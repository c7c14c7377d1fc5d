package retrieval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandNoSynonyms(t *testing.T) {
	assert.Equal(t, []string{"install docbro"}, Expand("install docbro", nil))
}

func TestExpandSubstitutesKnownTerm(t *testing.T) {
	synonyms := SynonymMap{"install": {"setup", "configure"}}
	variants := Expand("install docbro", synonyms)
	assert.Contains(t, variants, "install docbro")
	assert.Contains(t, variants, "setup docbro")
	assert.Contains(t, variants, "configure docbro")
}

func TestExpandCapsAtMaxVariants(t *testing.T) {
	synonyms := SynonymMap{
		"a": {"a1", "a2", "a3"},
		"b": {"b1", "b2", "b3"},
	}
	variants := Expand("a b", synonyms)
	assert.LessOrEqual(t, len(variants), maxVariants)
}

func TestLoadSynonymsMissingFileIsNotError(t *testing.T) {
	synonyms, err := LoadSynonyms(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Empty(t, synonyms)
}

func TestLoadSynonymsParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "query_transformations.yaml")
	content := "install:\n  - setup\n  - configure\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	synonyms, err := LoadSynonyms(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"setup", "configure"}, synonyms["install"])
}
