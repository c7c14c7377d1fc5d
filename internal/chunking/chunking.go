// Package chunking splits page text into overlapping chunks (spec §4.D):
// a character sliding window by default, or a semantic sentence-grouping
// strategy, each producing a model.Chunk sequence with a contextual header
// prefix. Grounded on the teacher's preference for pure, dependency-free
// functions for anything CPU-bound and easily unit tested.
package chunking

import (
	"strings"

	"github.com/behemotion/docbro/internal/model"
)

// Strategy selects a chunking algorithm.
type Strategy string

const (
	StrategyCharacter Strategy = "character"
	StrategySemantic  Strategy = "semantic"
)

// Options configures a chunking run, sourced from the box's RagConfig or
// the crawl defaults.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	Project      string
	Title        string
	HeadingTrail []string
}

// headerContextCap bounds the contextual header prefix (spec §4.D).
const headerContextCap = model.HeaderContextCap

// BuildHeader renders the "[{project}/{title}] > {heading_trail} :: " prefix,
// truncated to headerContextCap characters.
func BuildHeader(opts Options) string {
	trail := strings.Join(opts.HeadingTrail, " > ")
	header := "[" + opts.Project + "/" + opts.Title + "]"
	if trail != "" {
		header += " > " + trail
	}
	header += " :: "
	if len(header) > headerContextCap {
		header = header[:headerContextCap]
	}
	return header
}

// buildChunks assembles model.Chunk values from spans of text, attaching the
// shared header and sequential ordinals.
func buildChunks(pageID, boxID string, spans []span, header string) []model.Chunk {
	if len(spans) == 0 {
		return nil
	}
	out := make([]model.Chunk, len(spans))
	for i, sp := range spans {
		out[i] = model.Chunk{
			PageID:        pageID,
			BoxID:         boxID,
			Ordinal:       i,
			Text:          sp.text,
			HeaderContext: header,
			CharSpan:      model.CharSpan{Start: sp.start, End: sp.end},
		}
	}
	return out
}

type span struct {
	text       string
	start, end int
}
