// Package ranker filters and orders vector search results by distance.
//
// Only results closer than the relevance threshold survive. Survivors are
// ordered closest first, with ties kept in store order, and truncated to the
// result cap regardless of how many the caller asked for: semantic matches
// beyond the top few are noise.
package ranker

import (
	"sort"

	"github.com/knoguchi/freightquote/internal/docstore"
)

const (
	// DefaultThreshold is the exclusive upper bound on distance.
	DefaultThreshold = 0.7

	// DefaultMaxResults caps semantic results per request.
	DefaultMaxResults = 10
)

// Ranker defines the interface for ranking vector search results.
type Ranker interface {
	// Rank filters and orders results and returns at most limit of them.
	Rank(results []docstore.ScoredRecord, limit int) []docstore.ScoredRecord
}

// DistanceRanker ranks by ascending distance with a threshold and cap.
type DistanceRanker struct {
	threshold  float64
	maxResults int
}

// Option is a functional option for configuring DistanceRanker.
type Option func(*DistanceRanker)

// WithThreshold sets the distance at or above which results are dropped.
func WithThreshold(threshold float64) Option {
	return func(r *DistanceRanker) {
		if threshold > 0 {
			r.threshold = threshold
		}
	}
}

// WithMaxResults sets the semantic result cap.
func WithMaxResults(n int) Option {
	return func(r *DistanceRanker) {
		if n > 0 {
			r.maxResults = n
		}
	}
}

// New creates a DistanceRanker.
func New(opts ...Option) *DistanceRanker {
	r := &DistanceRanker{
		threshold:  DefaultThreshold,
		maxResults: DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank drops results with distance >= threshold, sorts the rest ascending
// (stable) and truncates to min(maxResults, limit). The input is not modified.
// An empty result is valid and returned as an empty, non-nil slice.
func (r *DistanceRanker) Rank(results []docstore.ScoredRecord, limit int) []docstore.ScoredRecord {
	kept := make([]docstore.ScoredRecord, 0, len(results))
	for _, res := range results {
		if res.Distance < r.threshold {
			kept = append(kept, res)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Distance < kept[j].Distance
	})

	n := r.maxResults
	if limit > 0 && limit < n {
		n = limit
	}
	if len(kept) > n {
		kept = kept[:n]
	}
	return kept
}

// Threshold returns the configured distance threshold.
func (r *DistanceRanker) Threshold() float64 {
	return r.threshold
}

var _ Ranker = (*DistanceRanker)(nil)
