package chunking

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildHeader(t *testing.T) {
	h := BuildHeader(Options{Project: "docbro", Title: "Install", HeadingTrail: []string{"Setup", "Linux"}})
	assert.Equal(t, "[docbro/Install] > Setup > Linux :: ", h)
}

func TestBuildHeaderNoTrail(t *testing.T) {
	h := BuildHeader(Options{Project: "docbro", Title: "Install"})
	assert.Equal(t, "[docbro/Install] :: ", h)
}

func TestBuildHeaderTruncated(t *testing.T) {
	long := strings.Repeat("x", headerContextCap*2)
	h := BuildHeader(Options{Project: long, Title: long})
	assert.LessOrEqual(t, len(h), headerContextCap)
}

func TestCharacterEmptyText(t *testing.T) {
	chunks := Character("page1", "box1", "", Options{})
	assert.Nil(t, chunks)
}

func TestCharacterSingleChunk(t *testing.T) {
	chunks := Character("page1", "box1", "hello world", Options{ChunkSize: 500})
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, "page1", chunks[0].PageID)
	assert.Equal(t, "box1", chunks[0].BoxID)
}

func TestCharacterSlidingWindowWithOverlap(t *testing.T) {
	text := strings.Repeat("a", 1200)
	chunks := Character("page1", "box1", text, Options{ChunkSize: 500, ChunkOverlap: 50})
	require.True(t, len(chunks) > 1)
	for i, c := range chunks {
		assert.Equal(t, i, c.Ordinal)
	}
	// overlap means the second chunk's start is before the first chunk's end
	assert.Less(t, chunks[1].CharSpan.Start, chunks[0].CharSpan.End)
}

func TestCharacterPrefersParagraphBoundary(t *testing.T) {
	para1 := strings.Repeat("a", 480)
	para2 := strings.Repeat("b", 200)
	text := para1 + "\n\n" + para2
	chunks := Character("page1", "box1", text, Options{ChunkSize: 500, ChunkOverlap: 0})
	require.True(t, len(chunks) >= 2)
	assert.True(t, strings.HasSuffix(chunks[0].Text, "a\n\n"))
}

func TestSplitSentences(t *testing.T) {
	out := splitSentences("Hello world. How are you? Fine!")
	assert.Equal(t, []string{"Hello world.", "How are you?", "Fine!"}, out)
}

func TestSplitSentencesEmpty(t *testing.T) {
	assert.Nil(t, splitSentences("   "))
}

func TestSplitSentencesNoPunctuation(t *testing.T) {
	out := splitSentences("just one fragment")
	assert.Equal(t, []string{"just one fragment"}, out)
}

type fakeBatchEmbedder struct {
	vectors [][]float32
	err     error
}

func (f *fakeBatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[:len(texts)], nil
}

func TestSemanticSingleSentence(t *testing.T) {
	log := zap.NewNop()
	chunks := Semantic(context.Background(), &fakeBatchEmbedder{}, log, "p1", "b1", "Only one sentence.", Options{})
	require.Len(t, chunks, 1)
	assert.Equal(t, "Only one sentence.", chunks[0].Text)
}

func TestSemanticGroupsSimilarSentences(t *testing.T) {
	log := zap.NewNop()
	embedder := &fakeBatchEmbedder{vectors: [][]float32{
		{1, 0, 0},
		{0.99, 0.01, 0},
		{0, 1, 0},
	}}
	chunks := Semantic(context.Background(), embedder, log, "p1", "b1", "One. Two. Three.", Options{})
	require.Len(t, chunks, 2)
	assert.Equal(t, "One. Two.", chunks[0].Text)
	assert.Equal(t, "Three.", chunks[1].Text)
}

func TestSemanticFallsBackToCharacterOnError(t *testing.T) {
	log := zap.NewNop()
	embedder := &fakeBatchEmbedder{err: errors.New("embed failed")}
	text := "First sentence here. Second sentence here."
	chunks := Semantic(context.Background(), embedder, log, "p1", "b1", text, Options{ChunkSize: 500})
	want := Character("p1", "b1", text, Options{ChunkSize: 500})
	require.Len(t, chunks, len(want))
	assert.Equal(t, want[0].Text, chunks[0].Text)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity(nil, []float32{1}))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestAverageVectors(t *testing.T) {
	out := averageVectors([]float32{2, 4}, 1, []float32{4, 8})
	assert.InDelta(t, 3, out[0], 1e-6)
	assert.InDelta(t, 6, out[1], 1e-6)
}
