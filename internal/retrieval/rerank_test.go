package retrieval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerankEmpty(t *testing.T) {
	assert.Nil(t, Rerank("query", nil, nil, nil, time.Now()))
}

func TestRerankOrdersByFinalScore(t *testing.T) {
	now := time.Now()
	candidates := []Candidate{
		{ChunkID: "low", Text: "unrelated filler content", VectorScore: 0.1, PageID: "p1"},
		{ChunkID: "high", Text: "install docbro on linux", VectorScore: 0.9, PageID: "p2"},
	}
	titles := map[string]string{"p2": "Installing DocBro"}
	fetched := map[string]time.Time{"p1": now, "p2": now}

	results := Rerank("install docbro", candidates, titles, fetched, now)
	require.Len(t, results, 2)
	assert.Equal(t, "high", results[0].ChunkID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestRerankTieBreaksByOriginalRankThenID(t *testing.T) {
	now := time.Now()
	candidates := []Candidate{
		{ChunkID: "b", Text: "x", VectorScore: 0.5},
		{ChunkID: "a", Text: "x", VectorScore: 0.5},
	}
	results := Rerank("irrelevant", candidates, nil, nil, now)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].ChunkID)
}

func TestFreshnessScoreDecaysWithAge(t *testing.T) {
	now := time.Now()
	fresh := freshnessScore(now, now)
	stale := freshnessScore(now.Add(-365*24*time.Hour), now)
	assert.Greater(t, fresh, stale)
	assert.Equal(t, 0.0, freshnessScore(time.Time{}, now))
}

func TestTitleMatch(t *testing.T) {
	assert.Equal(t, 1.0, titleMatch([]string{"docbro"}, "DocBro Install Guide"))
	assert.Equal(t, 0.0, titleMatch([]string{"docbro"}, "Unrelated"))
	assert.Equal(t, 0.0, titleMatch([]string{"docbro"}, ""))
}

func TestTermOverlap(t *testing.T) {
	assert.Equal(t, 1.0, termOverlap([]string{"install", "docbro"}, []string{"install", "docbro", "now"}))
	assert.Equal(t, 0.5, termOverlap([]string{"install", "docbro"}, []string{"install"}))
	assert.Equal(t, 0.0, termOverlap(nil, []string{"install"}))
}

func TestTokenizeStripsStopwordsAndShortTokens(t *testing.T) {
	out := tokenize("The Quick Brown Fox is a Test!")
	assert.Equal(t, []string{"quick", "brown", "fox", "test"}, out)
}
