// Package fusion provides rank-based fusion of retrieval result lists.
package fusion

import (
	"sort"

	"github.com/lucidnotes/lucid-search/internal/highlight"
)

const (
	// DefaultK is the RRF smoothing constant.
	// Higher values reduce the impact of rank position differences.
	DefaultK = 60
)

// Config configures Reciprocal Rank Fusion parameters.
type Config struct {
	// K is the smoothing constant (default: 60).
	K int
}

// DefaultConfig returns the default RRF configuration.
func DefaultConfig() Config {
	return Config{K: DefaultK}
}

// ScoredResult is a fused candidate with its per-retriever ranks.
type ScoredResult struct {
	// ID is the highlight identifier.
	ID string

	// SemanticRank is the rank in semantic results (1-based, 0 if absent).
	SemanticRank int

	// KeywordRank is the rank in keyword results (1-based, 0 if absent).
	KeywordRank int

	// SemanticScore is the original similarity score.
	SemanticScore float64

	// KeywordScore is the original text-relevance score.
	KeywordScore float64

	// FusedScore is the summed RRF score.
	FusedScore float64
}

// Fuse combines semantic and keyword candidate lists using unweighted RRF.
//
// Each list contributes 1/(k + rank) per candidate; candidates present in
// both lists sum their contributions. Semantic candidates are merged first,
// and the final sort is stable, so an exact score tie resolves in favor of
// the semantic ordering. Order within each input list is trusted as given.
func Fuse(semantic, keyword []highlight.RankedCandidate, cfg Config) []ScoredResult {
	if cfg.K <= 0 {
		cfg.K = DefaultK
	}

	index := make(map[string]int, len(semantic)+len(keyword))
	results := make([]ScoredResult, 0, len(semantic)+len(keyword))

	merge := func(id string) *ScoredResult {
		if i, ok := index[id]; ok {
			return &results[i]
		}
		index[id] = len(results)
		results = append(results, ScoredResult{ID: id})
		return &results[len(results)-1]
	}

	for rank, c := range semantic {
		sr := merge(c.ID)
		sr.SemanticRank = rank + 1
		sr.SemanticScore = c.NativeScore
		sr.FusedScore += 1.0 / float64(cfg.K+rank+1)
	}

	for rank, c := range keyword {
		sr := merge(c.ID)
		sr.KeywordRank = rank + 1
		sr.KeywordScore = c.NativeScore
		sr.FusedScore += 1.0 / float64(cfg.K+rank+1)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FusedScore > results[j].FusedScore
	})

	return results
}

// Truncate returns at most limit results from the fused list.
func Truncate(results []ScoredResult, limit int) []ScoredResult {
	if limit <= 0 || limit >= len(results) {
		return results
	}
	return results[:limit]
}
