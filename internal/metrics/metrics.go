// Package metrics registers the in-process Prometheus counters and
// histograms exposed at GET /metrics on the admin MCP server (spec
// SPEC_FULL.md §Domain Stack). Grounded on the teacher's internal/http
// metrics, narrowed to a single promauto registry shared across crawler,
// indexer, and retrieval instead of per-package metric structs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CrawlPagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docbro_crawl_pages_fetched_total",
		Help: "Pages successfully fetched by the crawler, by box.",
	}, []string{"box"})

	CrawlPagesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docbro_crawl_pages_failed_total",
		Help: "Pages that exhausted retries without succeeding, by box and error kind.",
	}, []string{"box", "kind"})

	IndexChunksWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docbro_index_chunks_written_total",
		Help: "Chunks successfully embedded and persisted, by box.",
	}, []string{"box"})

	EmbedBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "docbro_embed_batch_duration_seconds",
		Help:    "Latency of one adaptive embedding batch call.",
		Buckets: prometheus.DefBuckets,
	})

	EmbedCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docbro_embed_cache_hits_total",
		Help: "Embedding LRU cache hits.",
	})

	EmbedCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docbro_embed_cache_misses_total",
		Help: "Embedding LRU cache misses.",
	})

	RetrievalQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docbro_retrieval_query_duration_seconds",
		Help:    "End-to-end retrieval latency by strategy.",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})

	WizardActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "docbro_wizard_active_sessions",
		Help: "Currently open (non-completed) wizard sessions.",
	})
)
