// Package indexer orchestrates the chunk → embed → vector-upsert →
// metadata-insert pipeline for pages handed off by internal/crawler (and,
// for rag/bag boxes, by local file ingestion), per spec §4.G. Grounded on
// the teacher's ingestion pipeline pattern of small, composable stages
// wired together by one orchestrating Indexer type.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/behemotion/docbro/internal/chunking"
	"github.com/behemotion/docbro/internal/embedder"
	"github.com/behemotion/docbro/internal/metastore"
	"github.com/behemotion/docbro/internal/metrics"
	"github.com/behemotion/docbro/internal/model"
	"github.com/behemotion/docbro/internal/vectorstore"
)

// Document is one unit of content to index: a page plus its extracted body
// text. The crawler and the file-ingestion paths both produce these.
type Document struct {
	Page model.Page
	Body string
}

// Indexer wires chunking, embedding, vector storage, and metadata together.
type Indexer struct {
	Vectors  vectorstore.VectorStore
	Embedder embedder.Embedder
	Meta     *metastore.Store
	Log      *zap.Logger

	DefaultChunkSize    int
	DefaultChunkOverlap int
}

// IndexPage runs the full pipeline for one document against a box, honoring
// idempotence: unchanged content_hash is a no-op, changed content first
// deletes the page's prior chunks (vector and metadata) before rewriting.
// strategy selects character (default) or semantic chunking for this fill.
func (ix *Indexer) IndexPage(ctx context.Context, box model.Box, doc Document, strategy chunking.Strategy) (int, error) {
	existing, found, err := ix.Meta.GetPageByURL(ctx, box.ID, doc.Page.URL)
	if err != nil {
		return 0, err
	}
	if found && existing.ContentHash == doc.Page.ContentHash && existing.ContentHash != "" {
		return 0, nil
	}
	if found {
		if err := ix.deleteExisting(ctx, box.ID, existing.ID); err != nil {
			return 0, err
		}
	}

	pageID, _, err := ix.Meta.UpsertPage(ctx, doc.Page)
	if err != nil {
		return 0, err
	}

	opts := chunkOptions(box, doc.Page, ix.DefaultChunkSize, ix.DefaultChunkOverlap)
	chunks := ix.chunk(ctx, pageID, box, doc.Body, opts, strategy)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.HeaderContext + c.Text
	}
	vectors, err := ix.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}

	points := make([]vectorstore.Point, len(chunks))
	for i := range chunks {
		chunks[i].ID = uuid.NewString()
		chunks[i].EmbeddingRef = chunks[i].ID
		points[i] = vectorstore.Point{
			ID:     chunks[i].ID,
			Vector: vectors[i],
			Text:   chunks[i].Text,
			Metadata: map[string]string{
				"page_id": pageID,
				"box_id":  box.ID,
				"page_url": doc.Page.URL,
			},
		}
	}

	if err := ix.Vectors.EnsureCollection(ctx, box.ID, ix.Embedder.Dim()); err != nil {
		return 0, err
	}
	// Vector-insert must precede metadata-insert (spec §4.G): a crash
	// between the two leaves an orphaned vector, never a chunk row whose
	// vector is missing.
	if err := ix.Vectors.Upsert(ctx, box.ID, points); err != nil {
		return 0, err
	}
	if err := ix.Meta.InsertChunks(ctx, chunks); err != nil {
		return 0, err
	}
	if err := ix.Meta.SetBoxHasContent(ctx, box.ID, true); err != nil {
		return 0, err
	}
	metrics.IndexChunksWritten.WithLabelValues(box.ID).Add(float64(len(chunks)))
	return len(chunks), nil
}

func (ix *Indexer) deleteExisting(ctx context.Context, boxID, pageID string) error {
	chunkIDs, err := ix.Meta.DeleteChunksForPage(ctx, pageID)
	if err != nil {
		return err
	}
	if len(chunkIDs) == 0 {
		return nil
	}
	return ix.Vectors.DeleteByFilter(ctx, boxID, map[string]string{"page_id": pageID})
}

func (ix *Indexer) chunk(ctx context.Context, pageID string, box model.Box, body string, opts chunking.Options, strategy chunking.Strategy) []model.Chunk {
	if strategy == chunking.StrategySemantic {
		return chunking.Semantic(ctx, ix.Embedder, ix.Log, pageID, box.ID, body, opts)
	}
	return chunking.Character(pageID, box.ID, body, opts)
}

func chunkOptions(box model.Box, page model.Page, defaultSize, defaultOverlap int) chunking.Options {
	size, overlap := defaultSize, defaultOverlap
	if box.Config.Rag != nil {
		size, overlap = box.Config.Rag.ChunkSize, box.Config.Rag.ChunkOverlap
	}
	return chunking.Options{
		ChunkSize:    size,
		ChunkOverlap: overlap,
		Project:      box.Name,
		Title:        page.Title,
	}
}

// ContentHash hashes raw page body text for the idempotence check (spec
// §4.G), shared with the crawler so both paths agree on the same hash.
func ContentHash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}
