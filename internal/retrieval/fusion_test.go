package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseRRFSingleListPreservesOrder(t *testing.T) {
	list := []Candidate{{ChunkID: "a"}, {ChunkID: "b"}, {ChunkID: "c"}}
	out := FuseRRF([][]Candidate{list})
	require.Len(t, out, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{out[0].ChunkID, out[1].ChunkID, out[2].ChunkID})
	assert.Equal(t, 1, out[0].Rank)
	assert.Equal(t, 3, out[2].Rank)
}

func TestFuseRRFBoostsChunkAppearingInBothLists(t *testing.T) {
	listA := []Candidate{{ChunkID: "shared"}, {ChunkID: "only-a"}}
	listB := []Candidate{{ChunkID: "only-b"}, {ChunkID: "shared"}}
	out := FuseRRF([][]Candidate{listA, listB})
	require.Len(t, out, 3)
	assert.Equal(t, "shared", out[0].ChunkID)
}

func TestFuseRRFEmptyInput(t *testing.T) {
	assert.Empty(t, FuseRRF(nil))
	assert.Empty(t, FuseRRF([][]Candidate{{}, {}}))
}

func TestFuseRRFTieBreaksByChunkID(t *testing.T) {
	listA := []Candidate{{ChunkID: "z"}}
	listB := []Candidate{{ChunkID: "a"}}
	out := FuseRRF([][]Candidate{listA, listB})
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ChunkID)
	assert.Equal(t, "z", out[1].ChunkID)
}
