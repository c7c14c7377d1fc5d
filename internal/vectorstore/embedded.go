package vectorstore

import (
	"context"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// Embedded is the embedded VectorStore backend (spec §4.B "embedded"):
// chromem-go, persisted to a gob file under config.Paths.VectorsDir. DocBro
// always supplies its own embeddings (internal/embedder), so the
// chromem.EmbeddingFunc wired into every collection is never actually
// invoked; it exists only because chromem-go's constructor requires one.
type Embedded struct {
	db     *chromem.DB
	log    *zap.Logger
	mu     sync.RWMutex
	dims   map[string]int
}

// NewEmbedded opens (or creates) the persistent chromem-go database rooted
// at dir.
func NewEmbedded(dir string, log *zap.Logger) (*Embedded, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: open chromem db: %w", err)
	}
	return &Embedded{db: db, log: log, dims: map[string]int{}}, nil
}

func unusedEmbeddingFunc(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("vectorstore: embedded backend should never need to compute embeddings itself")
}

func (e *Embedded) EnsureCollection(ctx context.Context, collection string, dim int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.dims[collection]; ok {
		if existing != dim {
			return ErrDimMismatch
		}
		return nil
	}
	if _, err := e.db.GetOrCreateCollection(collection, nil, unusedEmbeddingFunc); err != nil {
		return fmt.Errorf("vectorstore: ensure collection %s: %w", collection, err)
	}
	e.dims[collection] = dim
	return nil
}

func (e *Embedded) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	e.mu.RLock()
	dim, known := e.dims[collection]
	e.mu.RUnlock()
	coll := e.db.GetCollection(collection, unusedEmbeddingFunc)
	if coll == nil {
		return fmt.Errorf("vectorstore: %w: %s", ErrCollectionNotFound, collection)
	}
	docs := make([]chromem.Document, len(points))
	for i, p := range points {
		if known && len(p.Vector) != dim {
			return ErrDimMismatch
		}
		docs[i] = chromem.Document{
			ID:        p.ID,
			Content:   p.Text,
			Metadata:  p.Metadata,
			Embedding: p.Vector,
		}
	}
	if err := coll.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("vectorstore: upsert into %s: %w", collection, err)
	}
	return nil
}

func (e *Embedded) Search(ctx context.Context, collection string, query []float32, k int) ([]SearchHit, error) {
	coll := e.db.GetCollection(collection, unusedEmbeddingFunc)
	if coll == nil {
		return nil, fmt.Errorf("vectorstore: %w: %s", ErrCollectionNotFound, collection)
	}
	n := coll.Count()
	if n == 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}
	results, err := coll.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search %s: %w", collection, err)
	}
	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{ID: r.ID, Score: r.Similarity, Text: r.Content, Metadata: r.Metadata}
	}
	return hits, nil
}

func (e *Embedded) DeleteByFilter(ctx context.Context, collection string, filter map[string]string) error {
	if len(filter) == 0 {
		return nil
	}
	coll := e.db.GetCollection(collection, unusedEmbeddingFunc)
	if coll == nil {
		return nil
	}
	if err := coll.Delete(ctx, filter, nil); err != nil {
		return fmt.Errorf("vectorstore: delete by filter in %s: %w", collection, err)
	}
	return nil
}

func (e *Embedded) DeleteCollection(ctx context.Context, collection string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.db.DeleteCollection(collection); err != nil {
		return fmt.Errorf("vectorstore: delete collection %s: %w", collection, err)
	}
	delete(e.dims, collection)
	return nil
}

func (e *Embedded) Count(ctx context.Context, collection string) (int, error) {
	coll := e.db.GetCollection(collection, unusedEmbeddingFunc)
	if coll == nil {
		return 0, nil
	}
	return coll.Count(), nil
}

func (e *Embedded) Health(ctx context.Context) Health {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Health{Reachable: true, Backend: "embedded", Detail: fmt.Sprintf("%d collections", len(e.dims))}
}

func (e *Embedded) Close() error {
	return nil
}
