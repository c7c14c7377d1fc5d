package metastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behemotion/docbro/internal/model"
)

func TestCreateAndGetCrawlSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	box := newTestBox(t, s)

	session, err := s.CreateCrawlSession(ctx, model.CrawlSession{BoxID: box.ID, Status: model.CrawlRunning, SeedURL: "https://x/", DepthLimit: 2, RateLimit: 1.0})
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)

	got, err := s.GetCrawlSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CrawlRunning, got.Status)
	assert.Nil(t, got.EndedAt)
	assert.Empty(t, got.Errors.Entries())
}

func TestUpdateCrawlCountersAndFinish(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	box := newTestBox(t, s)
	session, err := s.CreateCrawlSession(ctx, model.CrawlSession{BoxID: box.ID, Status: model.CrawlRunning, SeedURL: "https://x/"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateCrawlCounters(ctx, session.ID, model.CrawlCounters{PagesFetched: 5, PagesFailed: 1, PagesSkipped: 2}))
	require.NoError(t, s.FinishCrawlSession(ctx, session.ID, model.CrawlSucceeded))

	got, err := s.GetCrawlSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CrawlSucceeded, got.Status)
	assert.Equal(t, 5, got.Counters.PagesFetched)
	require.NotNil(t, got.EndedAt)
}

func TestAppendCrawlErrorIsOrderedAndHydrated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	box := newTestBox(t, s)
	session, err := s.CreateCrawlSession(ctx, model.CrawlSession{BoxID: box.ID, Status: model.CrawlRunning, SeedURL: "https://x/"})
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, s.AppendCrawlError(ctx, session.ID, model.ErrorLedgerEntry{URL: "https://x/a", Kind: model.ErrHTTP4xx, Message: "404", Attempts: 1, FirstSeen: now, LastSeen: now}))
	require.NoError(t, s.AppendCrawlError(ctx, session.ID, model.ErrorLedgerEntry{URL: "https://x/b", Kind: model.ErrTimeout, Message: "timeout", Attempts: 2, FirstSeen: now, LastSeen: now}))

	got, err := s.GetCrawlSession(ctx, session.ID)
	require.NoError(t, err)
	entries := got.Errors.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "https://x/a", entries[0].URL)
	assert.Equal(t, model.ErrTimeout, entries[1].Kind)
}

func TestGetCrawlSessionMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetCrawlSession(context.Background(), "missing")
	assert.Error(t, err)
}
