// Package retrieval implements query transformation, strategy enumeration,
// Reciprocal Rank Fusion, and the multi-signal reranker (spec §4.E). The
// tokenizer and stopword handling are adapted from the teacher's
// internal/reranker.SimpleReranker; everything else is new to DocBro's
// RRF/multi-strategy shape.
package retrieval

import "github.com/behemotion/docbro/internal/model"

// Candidate is one retrieval result before reranking.
type Candidate struct {
	ChunkID     string
	PageID      string
	BoxID       string
	Text        string
	PageURL     string
	PageTitle   string
	VectorScore float32
	Rank        int
}

// Signals is the per-candidate breakdown the reranker exposes for
// diagnostics (spec §4.E "Outputs carry ... signals").
type Signals struct {
	Vector    float64
	Term      float64
	Title     float64
	Freshness float64
}

// Result is one final, reranked retrieval hit.
type Result struct {
	Score   float64
	Signals Signals
	ChunkID string
	PageURL string
	BoxID   string
	Text    string
}

// Chunk is the minimal chunk shape retrieval hydrates from MetaStore.
type Chunk = model.Chunk
