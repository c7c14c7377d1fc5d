package chunking

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/behemotion/docbro/internal/model"
)

// similarityThreshold is the minimum pairwise cosine similarity for two
// adjacent sentences to join the same chunk (spec §4.D).
const similarityThreshold = 0.75

// semanticTimeout bounds semantic chunking per document; on expiry the
// caller falls back to Character chunking (spec §4.D).
const semanticTimeout = 5 * time.Second

// BatchEmbedder is the minimal embedding capability semantic chunking needs,
// satisfied by internal/embedder.Embedder without importing that package
// (which itself has no reason to depend on chunking).
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

var sentenceSplitter = regexp.MustCompile(`(?s)[^.!?]+[.!?]+(\s+|$)`)

func splitSentences(text string) []string {
	matches := sentenceSplitter.FindAllString(text, -1)
	if len(matches) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if t := strings.TrimSpace(m); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Semantic groups adjacent sentences whose similarity to the running chunk
// centroid stays above similarityThreshold, closing a chunk early when the
// configured chunk_size is reached. On timeout or embedding failure it logs
// the fallback event and returns Character's output for the same text.
func Semantic(ctx context.Context, embedder BatchEmbedder, log *zap.Logger, pageID, boxID, text string, opts Options) []model.Chunk {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}
	if len(sentences) == 1 {
		header := BuildHeader(opts)
		return buildChunks(pageID, boxID, []span{{text: sentences[0], start: 0, end: len([]rune(text))}}, header)
	}

	ctx, cancel := context.WithTimeout(ctx, semanticTimeout)
	defer cancel()

	vectors, err := embedder.EmbedBatch(ctx, sentences)
	if err != nil {
		log.Warn("semantic chunking timed out or failed, falling back to character chunking",
			zap.String("event", "semantic_timeout_fallback"), zap.String("page_id", pageID), zap.Error(err))
		return Character(pageID, boxID, text, opts)
	}

	var spans []span
	var groupStart int
	centroid := vectors[0]
	groupLen := 1
	cursor := 0
	groupText := sentences[0]

	flush := func(endCursor int) {
		spans = append(spans, span{text: groupText, start: groupStart, end: endCursor})
	}

	for i := 1; i < len(sentences); i++ {
		sim := cosineSimilarity(centroid, vectors[i])
		candidateLen := len(groupText) + 1 + len(sentences[i])
		if sim >= similarityThreshold && (opts.ChunkSize <= 0 || candidateLen <= opts.ChunkSize) {
			groupText += " " + sentences[i]
			centroid = averageVectors(centroid, groupLen, vectors[i])
			groupLen++
		} else {
			cursor = groupStart + len(groupText)
			flush(cursor)
			groupStart = cursor + 1
			groupText = sentences[i]
			centroid = vectors[i]
			groupLen = 1
		}
	}
	flush(groupStart + len(groupText))

	header := BuildHeader(opts)
	return buildChunks(pageID, boxID, spans, header)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// averageVectors folds a new vector into a running centroid computed over n
// prior members, avoiding re-summing the whole group each step.
func averageVectors(centroid []float32, n int, next []float32) []float32 {
	out := make([]float32, len(centroid))
	for i := range centroid {
		out[i] = (centroid[i]*float32(n) + next[i]) / float32(n+1)
	}
	return out
}
