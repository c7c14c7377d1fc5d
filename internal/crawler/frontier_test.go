package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAndPop(t *testing.T) {
	f := NewFrontier()
	f.Seed("https://example.com/")
	require.Equal(t, 1, f.Len())

	entry, ok := f.Pop()
	require.True(t, ok)
	assert.Equal(t, "https://example.com/", entry.URL)
	assert.Equal(t, 0, entry.Depth)
	assert.Equal(t, 0, f.Len())
}

func TestPopEmptyFrontier(t *testing.T) {
	f := NewFrontier()
	_, ok := f.Pop()
	assert.False(t, ok)
}

func TestEnqueueDeduplicatesAgainstSeenSet(t *testing.T) {
	f := NewFrontier()
	f.Seed("https://example.com/")
	assert.False(t, f.Enqueue("https://example.com/", 1), "already seen via Seed")
	assert.True(t, f.Enqueue("https://example.com/other", 1))
	assert.False(t, f.Enqueue("https://example.com/other", 2), "duplicate enqueue is rejected")
	assert.Equal(t, 2, f.SeenCount())
}

func TestRequeueIncrementsAttempts(t *testing.T) {
	f := NewFrontier()
	f.Seed("https://example.com/")
	entry, _ := f.Pop()
	assert.Equal(t, 0, entry.Attempts)

	f.Requeue(entry)
	requeued, ok := f.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, requeued.Attempts)
}
