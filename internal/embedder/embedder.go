// Package embedder implements the Embedder port (spec §4.C): batch text
// embedding backed by github.com/anush008/fastembed-go, a bounded LRU result
// cache, and adaptive batch sizing that shrinks under failure and grows back
// under success. Grounded on the teacher's internal/embeddings.FastEmbedProvider,
// narrowed to the single local backend DocBro needs.
package embedder

import (
	"context"
	"time"
)

// Health reports embedder reachability for `docbro health`.
type Health struct {
	Reachable bool
	Model     string
	Dimension int
	Detail    string
}

// Embedder is the port every chunk and query embedding goes through (spec
// §4.C).
type Embedder interface {
	// EmbedBatch embeds texts, returning one vector per input in the same
	// order. Internally this may issue several backend calls sized by the
	// adaptive batcher and consult the LRU cache per-text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dim returns the embedding dimension for the configured model.
	Dim() int

	// Health reports reachability.
	Health(ctx context.Context) Health

	// Close releases the underlying model.
	Close() error
}

// batchTimeout bounds a single backend call (spec §4.C).
const batchTimeout = 30 * time.Second
