package retrieval

import (
	"math"
	"sort"
	"strings"
	"time"
)

const (
	weightVector    = 0.5
	weightTerm      = 0.3
	weightTitle     = 0.1
	weightFreshness = 0.1

	freshnessHalfLifeDays = 180.0
)

// Rerank applies the fast multi-signal scorer (spec §4.E) to candidates and
// returns them sorted descending by final score, ties broken by original
// rank then chunk ID. pageTitles and pageFetchedAt are keyed by PageID.
func Rerank(query string, candidates []Candidate, pageTitles map[string]string, pageFetchedAt map[string]time.Time, now time.Time) []Result {
	if len(candidates) == 0 {
		return nil
	}
	queryTokens := tokenize(query)

	min, max := candidates[0].VectorScore, candidates[0].VectorScore
	for _, c := range candidates {
		if c.VectorScore < min {
			min = c.VectorScore
		}
		if c.VectorScore > max {
			max = c.VectorScore
		}
	}
	normRange := float64(max - min)

	type scored struct {
		result       Result
		origRank     int
	}
	out := make([]scored, len(candidates))
	for i, c := range candidates {
		vectorNorm := 0.0
		if normRange > 0 {
			vectorNorm = float64(c.VectorScore-min) / normRange
		} else {
			vectorNorm = 1.0
		}

		term := termOverlap(queryTokens, tokenize(c.Text))
		title := titleMatch(queryTokens, pageTitles[c.PageID])
		freshness := freshnessScore(pageFetchedAt[c.PageID], now)

		final := weightVector*vectorNorm + weightTerm*term + weightTitle*title + weightFreshness*freshness

		out[i] = scored{
			result: Result{
				Score:   final,
				Signals: Signals{Vector: vectorNorm, Term: term, Title: title, Freshness: freshness},
				ChunkID: c.ChunkID,
				PageURL: c.PageURL,
				BoxID:   c.BoxID,
				Text:    c.Text,
			},
			origRank: i,
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].result.Score != out[j].result.Score {
			return out[i].result.Score > out[j].result.Score
		}
		if out[i].origRank != out[j].origRank {
			return out[i].origRank < out[j].origRank
		}
		return out[i].result.ChunkID < out[j].result.ChunkID
	})

	results := make([]Result, len(out))
	for i, s := range out {
		results[i] = s.result
	}
	return results
}

func freshnessScore(fetchedAt time.Time, now time.Time) float64 {
	if fetchedAt.IsZero() {
		return 0
	}
	days := now.Sub(fetchedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	return math.Exp(-days / freshnessHalfLifeDays)
}

func titleMatch(queryTokens []string, title string) float64 {
	if title == "" {
		return 0
	}
	lower := strings.ToLower(title)
	for _, tok := range queryTokens {
		if strings.Contains(lower, tok) {
			return 1.0
		}
	}
	return 0
}

func termOverlap(queryTokens, docTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	docSet := make(map[string]struct{}, len(docTokens))
	for _, t := range docTokens {
		docSet[t] = struct{}{}
	}
	matched := map[string]struct{}{}
	for _, t := range queryTokens {
		if _, ok := docSet[t]; ok {
			matched[t] = struct{}{}
		}
	}
	return float64(len(matched)) / float64(len(queryTokens))
}

// tokenize lowercases, strips punctuation, and drops stopwords, adapted from
// the teacher's reranker.tokenize.
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 2 && !stopwords[f] {
			out = append(out, f)
		}
	}
	return out
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
	"are": true, "be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "can": true, "this": true,
	"that": true, "these": true, "those": true,
}
