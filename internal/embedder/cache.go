package embedder

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/behemotion/docbro/internal/metrics"
)

// resultCache is a bounded LRU keyed by SHA-256(text), 10,000 entries (spec
// §4.C). Cache hits skip the backend entirely, so repeated chunks (shared
// boilerplate across crawled pages) cost one embedding call, not one per
// occurrence.
type resultCache struct {
	lru *lru.Cache[string, []float32]
}

const cacheCap = 10_000

func newResultCache() *resultCache {
	c, _ := lru.New[string, []float32](cacheCap)
	return &resultCache{lru: c}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *resultCache) get(text string) ([]float32, bool) {
	vec, ok := c.lru.Get(cacheKey(text))
	if ok {
		metrics.EmbedCacheHits.Inc()
	} else {
		metrics.EmbedCacheMisses.Inc()
	}
	return vec, ok
}

func (c *resultCache) put(text string, vec []float32) {
	c.lru.Add(cacheKey(text), vec)
}
