package retrieval

import "sort"

// rrfK is Reciprocal Rank Fusion's smoothing constant (spec §4.E).
const rrfK = 60

// FuseRRF combines several ranked candidate lists into one, scoring each
// chunk by Σ 1/(rrfK + rank) across every list it appears in, then sorting
// descending by that score. rank is 1-based within each input list.
func FuseRRF(lists [][]Candidate) []Candidate {
	scores := map[string]float64{}
	best := map[string]Candidate{}

	for _, list := range lists {
		for i, c := range list {
			rank := i + 1
			scores[c.ChunkID] += 1.0 / float64(rrfK+rank)
			if _, ok := best[c.ChunkID]; !ok {
				best[c.ChunkID] = c
			}
		}
	}

	out := make([]Candidate, 0, len(best))
	for id, c := range best {
		c.VectorScore = float32(scores[id])
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VectorScore != out[j].VectorScore {
			return out[i].VectorScore > out[j].VectorScore
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
