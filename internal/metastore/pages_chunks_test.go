package metastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behemotion/docbro/internal/model"
)

func newTestBox(t *testing.T, s *Store) model.Box {
	t.Helper()
	box, err := s.CreateBox(context.Background(), model.Box{Name: "box-" + t.Name(), Type: model.BoxTypeDrag}, "")
	require.NoError(t, err)
	return box
}

func TestUpsertPageInsertsThenUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	box := newTestBox(t, s)

	id1, created, err := s.UpsertPage(ctx, model.Page{BoxID: box.ID, URL: "https://x/1", FetchedAt: time.Now(), StatusCode: 200, ContentHash: "h1"})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotEmpty(t, id1)

	id2, created, err := s.UpsertPage(ctx, model.Page{BoxID: box.ID, URL: "https://x/1", FetchedAt: time.Now(), StatusCode: 200, ContentHash: "h2", Title: "updated"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id2)

	page, found, err := s.GetPageByURL(ctx, box.ID, "https://x/1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "h2", page.ContentHash)
	assert.Equal(t, "updated", page.Title)
}

func TestGetPageByURLMissingReturnsFalseNotError(t *testing.T) {
	s := newTestStore(t)
	box := newTestBox(t, s)
	_, found, err := s.GetPageByURL(context.Background(), box.ID, "https://missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInsertChunksAndCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	box := newTestBox(t, s)
	pageID, _, err := s.UpsertPage(ctx, model.Page{BoxID: box.ID, URL: "https://x/1", FetchedAt: time.Now(), ContentHash: "h1"})
	require.NoError(t, err)

	err = s.InsertChunks(ctx, []model.Chunk{
		{PageID: pageID, BoxID: box.ID, Ordinal: 0, Text: "first", CharSpan: model.CharSpan{Start: 0, End: 5}, EmbeddingRef: "ref-0"},
		{PageID: pageID, BoxID: box.ID, Ordinal: 1, Text: "second", CharSpan: model.CharSpan{Start: 5, End: 11}, EmbeddingRef: "ref-1"},
	})
	require.NoError(t, err)

	n, err := s.CountChunksForBox(ctx, box.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	chunks, err := s.ChunksForBox(ctx, box.ID)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestDeleteChunksForPageReturnsEmbeddingRefs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	box := newTestBox(t, s)
	pageID, _, err := s.UpsertPage(ctx, model.Page{BoxID: box.ID, URL: "https://x/1", FetchedAt: time.Now(), ContentHash: "h1"})
	require.NoError(t, err)
	require.NoError(t, s.InsertChunks(ctx, []model.Chunk{
		{PageID: pageID, BoxID: box.ID, Ordinal: 0, Text: "a", EmbeddingRef: "ref-a"},
	}))

	refs, err := s.DeleteChunksForPage(ctx, pageID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ref-a"}, refs)

	n, err := s.CountChunksForBox(ctx, box.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestChunksByIDsEmptyInput(t *testing.T) {
	s := newTestStore(t)
	out, err := s.ChunksByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestChunksByIDsHydratesRequestedChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	box := newTestBox(t, s)
	pageID, _, err := s.UpsertPage(ctx, model.Page{BoxID: box.ID, URL: "https://x/1", FetchedAt: time.Now(), ContentHash: "h1"})
	require.NoError(t, err)
	require.NoError(t, s.InsertChunks(ctx, []model.Chunk{
		{ID: "c1", PageID: pageID, BoxID: box.ID, Text: "a", EmbeddingRef: "ref-a"},
		{ID: "c2", PageID: pageID, BoxID: box.ID, Text: "b", EmbeddingRef: "ref-b"},
	}))

	got, err := s.ChunksByIDs(ctx, []string{"c1"})
	require.NoError(t, err)
	require.Contains(t, got, "c1")
	assert.NotContains(t, got, "c2")
}

func TestPageByIDMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.PageByID(context.Background(), "missing")
	assert.Error(t, err)
}
