package chunking

import (
	"strings"

	"github.com/behemotion/docbro/internal/model"
)

// paragraphSearchWindow is how close to a split point "\n\n" must appear to
// be preferred over a hard cut (spec §4.D).
const paragraphSearchWindow = 50

// Character splits text into a fixed-size sliding window with overlap,
// preferring a paragraph boundary when one falls within paragraphSearchWindow
// characters of the computed split point (spec §4.D).
func Character(pageID, boxID, text string, opts Options) []model.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 500
	}

	var spans []span
	start := 0
	for start < len(runes) {
		end := start + opts.ChunkSize
		if end > len(runes) {
			end = len(runes)
		} else {
			end = preferParagraphBoundary(runes, start, end)
		}
		spans = append(spans, span{text: string(runes[start:end]), start: start, end: end})
		if end >= len(runes) {
			break
		}
		next := end - opts.ChunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}

	header := BuildHeader(opts)
	return buildChunks(pageID, boxID, spans, header)
}

// preferParagraphBoundary looks for "\n\n" within paragraphSearchWindow
// runes before the computed end and splits there instead, so paragraphs
// aren't cut mid-sentence when a natural break is nearby.
func preferParagraphBoundary(runes []rune, start, end int) int {
	searchStart := end - paragraphSearchWindow
	if searchStart < start {
		searchStart = start
	}
	window := string(runes[searchStart:end])
	if idx := strings.LastIndex(window, "\n\n"); idx >= 0 {
		return searchStart + idx + 2
	}
	return end
}
