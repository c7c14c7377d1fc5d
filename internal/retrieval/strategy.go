package retrieval

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/behemotion/docbro/internal/embedder"
	"github.com/behemotion/docbro/internal/metastore"
	"github.com/behemotion/docbro/internal/metrics"
	"github.com/behemotion/docbro/internal/vectorstore"
)

// Strategy selects how candidates are gathered before reranking (spec §4.E).
type Strategy string

const (
	StrategySemantic Strategy = "semantic"
	StrategyHybrid   Strategy = "hybrid"
	StrategyFusion   Strategy = "fusion"
	StrategyAdvanced Strategy = "advanced"
)

// Engine runs a retrieval query end to end: transform, strategy execution,
// fusion, and (optionally) reranking.
type Engine struct {
	Vectors  vectorstore.VectorStore
	Embedder embedder.Embedder
	Meta     *metastore.Store
}

// Query describes one retrieval request.
type Query struct {
	Text      string
	BoxID     string
	TopK      int
	Strategy  Strategy
	Rerank    bool
	Synonyms  SynonymMap
}

// Run executes query and returns ranked results.
func (e *Engine) Run(ctx context.Context, q Query) ([]Result, error) {
	start := time.Now()
	defer func() {
		metrics.RetrievalQueryDuration.WithLabelValues(string(q.Strategy)).Observe(time.Since(start).Seconds())
	}()
	if q.TopK <= 0 {
		q.TopK = 10
	}
	variants := []string{q.Text}
	if q.Strategy == StrategyFusion || q.Strategy == StrategyAdvanced {
		variants = Expand(q.Text, q.Synonyms)
	}

	lists, err := e.gather(ctx, q, variants)
	if err != nil {
		return nil, err
	}

	fused := FuseRRF(lists)
	if len(fused) > q.TopK*3 {
		fused = fused[:q.TopK*3]
	}

	if !q.Rerank {
		out := make([]Result, 0, len(fused))
		for _, c := range fused {
			out = append(out, Result{Score: float64(c.VectorScore), ChunkID: c.ChunkID, PageURL: c.PageURL, BoxID: c.BoxID, Text: c.Text})
		}
		if len(out) > q.TopK {
			out = out[:q.TopK]
		}
		return out, nil
	}

	titles, fetchedAt, err := e.hydratePages(ctx, fused)
	if err != nil {
		return nil, err
	}
	reranked := Rerank(q.Text, fused, titles, fetchedAt, time.Now())
	if len(reranked) > q.TopK {
		reranked = reranked[:q.TopK]
	}
	return reranked, nil
}

// gather runs every (variant × branch) combination in parallel per spec
// §4.E's "fusion"/"advanced" strategies, returning one ranked list per
// combination for FuseRRF to combine.
func (e *Engine) gather(ctx context.Context, q Query, variants []string) ([][]Candidate, error) {
	type job struct {
		variant string
		kind    string
	}
	var jobs []job
	switch q.Strategy {
	case StrategySemantic:
		jobs = []job{{variants[0], "semantic"}}
	case StrategyHybrid:
		jobs = []job{{variants[0], "semantic"}, {variants[0], "keyword"}}
	case StrategyFusion, StrategyAdvanced:
		for _, v := range variants {
			jobs = append(jobs, job{v, "semantic"}, job{v, "keyword"})
		}
	default:
		jobs = []job{{variants[0], "semantic"}}
	}

	results := make([][]Candidate, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			var list []Candidate
			var err error
			switch j.kind {
			case "semantic":
				list, err = e.semanticSearch(gctx, q.BoxID, j.variant, q.TopK)
			case "keyword":
				list, err = e.keywordSearch(gctx, q.BoxID, j.variant, q.TopK)
			}
			if err != nil {
				return err
			}
			results[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) semanticSearch(ctx context.Context, boxID, query string, k int) ([]Candidate, error) {
	vecs, err := e.Embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	hits, err := e.Vectors.Search(ctx, boxID, vecs[0], k)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, len(hits))
	for i, h := range hits {
		out[i] = Candidate{
			ChunkID:     h.ID,
			PageID:      h.Metadata["page_id"],
			PageURL:     h.Metadata["page_url"],
			BoxID:       boxID,
			Text:        h.Text,
			VectorScore: h.Score,
			Rank:        i + 1,
		}
	}
	return out, nil
}

// keywordSearch ranks a box's chunks by normalized term overlap with query,
// the "keyword filter" branch of hybrid/fusion (spec §4.E).
func (e *Engine) keywordSearch(ctx context.Context, boxID, query string, k int) ([]Candidate, error) {
	chunks, err := e.Meta.ChunksForBox(ctx, boxID)
	if err != nil {
		return nil, err
	}
	queryTokens := tokenize(query)
	type scored struct {
		chunk   Chunk
		overlap float64
	}
	var scoredChunks []scored
	for _, c := range chunks {
		overlap := termOverlap(queryTokens, tokenize(c.Text))
		if overlap > 0 || strings.Contains(strings.ToLower(c.Text), strings.ToLower(query)) {
			scoredChunks = append(scoredChunks, scored{c, overlap})
		}
	}
	sort.Slice(scoredChunks, func(i, j int) bool { return scoredChunks[i].overlap > scoredChunks[j].overlap })
	if len(scoredChunks) > k {
		scoredChunks = scoredChunks[:k]
	}
	urls := map[string]string{}
	out := make([]Candidate, len(scoredChunks))
	for i, s := range scoredChunks {
		if _, ok := urls[s.chunk.PageID]; !ok {
			if page, err := e.Meta.PageByID(ctx, s.chunk.PageID); err == nil {
				urls[s.chunk.PageID] = page.URL
			}
		}
		out[i] = Candidate{
			ChunkID:     s.chunk.ID,
			PageID:      s.chunk.PageID,
			PageURL:     urls[s.chunk.PageID],
			BoxID:       boxID,
			Text:        s.chunk.Text,
			VectorScore: float32(s.overlap),
			Rank:        i + 1,
		}
	}
	return out, nil
}

func (e *Engine) hydratePages(ctx context.Context, candidates []Candidate) (map[string]string, map[string]time.Time, error) {
	titles := map[string]string{}
	fetchedAt := map[string]time.Time{}
	seen := map[string]bool{}
	for _, c := range candidates {
		if c.PageID == "" || seen[c.PageID] {
			continue
		}
		seen[c.PageID] = true
		page, err := e.Meta.PageByID(ctx, c.PageID)
		if err != nil {
			continue
		}
		titles[c.PageID] = page.Title
		fetchedAt[c.PageID] = page.FetchedAt
	}
	return titles, fetchedAt, nil
}
