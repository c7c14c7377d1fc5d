package embedder

import (
	"context"
	"fmt"
	"sync"
	"time"

	fastembed "github.com/anush008/fastembed-go"
	"go.uber.org/zap"

	"github.com/behemotion/docbro/internal/errs"
	"github.com/behemotion/docbro/internal/metrics"
)

var modelMapping = map[string]fastembed.EmbeddingModel{
	"mxbai-embed-large":                      fastembed.EmbeddingModel("mxbai-embed-large-v1"),
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

var modelDimensions = map[fastembed.EmbeddingModel]int{
	fastembed.EmbeddingModel("mxbai-embed-large-v1"): 1024,
	fastembed.BGESmallENV15:                          384,
	fastembed.BGEBaseENV15:                            768,
	fastembed.AllMiniLML6V2:                           384,
}

// FastEmbed is the local-model Embedder backend (spec §4.C).
type FastEmbed struct {
	model     *fastembed.FlagEmbedding
	modelName string
	dim       int
	cache     *resultCache
	batcher   *adaptiveBatcher
	log       *zap.Logger
	mu        sync.RWMutex
}

// New constructs a FastEmbed embedder for modelName, caching ONNX model
// files under cacheDir (spec §6 cache_dir).
func New(modelName, cacheDir string, log *zap.Logger) (*FastEmbed, error) {
	model, ok := modelMapping[modelName]
	if !ok {
		return nil, errs.Newf(errs.InvalidInput, "embedder: unsupported model %q", modelName)
	}
	dim := modelDimensions[model]

	showProgress := false
	flagEmbed, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cacheDir,
		MaxLength:            512,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, errs.Wrap(errs.EmbedBackendUnavailable, err, "embedder: load model "+modelName)
	}

	return &FastEmbed{
		model:     flagEmbed,
		modelName: modelName,
		dim:       dim,
		cache:     newResultCache(),
		batcher:   newAdaptiveBatcher(),
		log:       log,
	}, nil
}

func (e *FastEmbed) Dim() int { return e.dim }

// EmbedBatch embeds texts, consulting the cache per-text and only sending
// cache misses to the backend, in batches sized by the adaptive batcher. A
// failed backend call is retried up to maxBatchRetries times, each time with
// the batcher's reduced size and a growing delay, before EmbedBatch fails
// with EmbedTimeout.
func (e *FastEmbed) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	const maxBatchRetries = 3
	out := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missText := make([]string, 0, len(texts))

	for i, t := range texts {
		if v, ok := e.cache.get(t); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missText = append(missText, t)
	}

	retries := 0
	for start := 0; start < len(missText); {
		size := e.batcher.current()
		end := start + size
		if end > len(missText) {
			end = len(missText)
		}
		chunk := missText[start:end]

		batchStart := time.Now()
		vecs, err := e.embedWithTimeout(ctx, chunk)
		metrics.EmbedBatchDuration.Observe(time.Since(batchStart).Seconds())
		if err != nil {
			e.batcher.onFailure()
			if retries >= maxBatchRetries {
				return nil, errs.Wrap(errs.EmbedTimeout, err, "embedder: embed batch")
			}
			retries++
			select {
			case <-ctx.Done():
				return nil, errs.Wrap(errs.EmbedTimeout, ctx.Err(), "embedder: embed batch")
			case <-time.After(time.Duration(retries) * 100 * time.Millisecond):
			}
			continue
		}
		retries = 0
		e.batcher.onSuccess()

		for i, v := range vecs {
			idx := missIdx[start+i]
			out[idx] = v
			e.cache.put(chunk[i], v)
		}
		start = end
	}
	return out, nil
}

// embedWithTimeout runs PassageEmbed on a background goroutine so a stuck
// ONNX call can be bounded by batchTimeout even though fastembed-go's API
// takes no context.
func (e *FastEmbed) embedWithTimeout(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	type result struct {
		vecs [][]float32
		err  error
	}
	done := make(chan result, 1)
	go func() {
		vecs, err := e.model.PassageEmbed(texts, 256)
		done <- result{vecs, err}
	}()

	select {
	case r := <-done:
		return r.vecs, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *FastEmbed) Health(ctx context.Context) Health {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Health{Reachable: e.model != nil, Model: e.modelName, Dimension: e.dim}
}

func (e *FastEmbed) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil
	}
	err := e.model.Destroy()
	e.model = nil
	if err != nil {
		return fmt.Errorf("embedder: close model: %w", err)
	}
	return nil
}
