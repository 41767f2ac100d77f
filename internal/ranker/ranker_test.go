package ranker

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/knoguchi/freightquote/internal/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(id string, distance float64) docstore.ScoredRecord {
	return docstore.ScoredRecord{Record: docstore.Record{ID: id}, Distance: distance}
}

func ids(results []docstore.ScoredRecord) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestDistanceRanker_Rank(t *testing.T) {
	tests := []struct {
		name    string
		input   []docstore.ScoredRecord
		limit   int
		wantIDs []string
	}{
		{
			name:    "empty input",
			input:   nil,
			limit:   50,
			wantIDs: []string{},
		},
		{
			name:    "all filtered out",
			input:   []docstore.ScoredRecord{scored("a", 0.7), scored("b", 0.95)},
			limit:   50,
			wantIDs: []string{},
		},
		{
			name:    "threshold is exclusive",
			input:   []docstore.ScoredRecord{scored("a", 0.69999), scored("b", 0.7)},
			limit:   50,
			wantIDs: []string{"a"},
		},
		{
			name:    "ascending with stable ties",
			input:   []docstore.ScoredRecord{scored("a", 0.4), scored("b", 0.1), scored("c", 0.4), scored("d", 0.2)},
			limit:   50,
			wantIDs: []string{"b", "d", "a", "c"},
		},
		{
			name:    "limit below cap",
			input:   []docstore.ScoredRecord{scored("a", 0.3), scored("b", 0.1), scored("c", 0.2)},
			limit:   2,
			wantIDs: []string{"b", "c"},
		},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Rank(tt.input, tt.limit)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantIDs, ids(got))
		})
	}
}

func TestDistanceRanker_CapsAtMaxResults(t *testing.T) {
	input := make([]docstore.ScoredRecord, 0, 40)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 40; i++ {
		input = append(input, scored(fmt.Sprintf("q-%d", i), rng.Float64()))
	}

	got := New().Rank(input, 100)
	assert.LessOrEqual(t, len(got), DefaultMaxResults)
	for i, res := range got {
		assert.Less(t, res.Distance, DefaultThreshold)
		if i > 0 {
			assert.LessOrEqual(t, got[i-1].Distance, res.Distance)
		}
	}
}

func TestDistanceRanker_Options(t *testing.T) {
	r := New(WithThreshold(0.3), WithMaxResults(1))
	got := r.Rank([]docstore.ScoredRecord{scored("a", 0.25), scored("b", 0.1), scored("c", 0.35)}, 50)
	assert.Equal(t, []string{"b"}, ids(got))
	assert.Equal(t, 0.3, r.Threshold())

	// Non-positive values keep the defaults.
	d := New(WithThreshold(0), WithMaxResults(-1))
	assert.Equal(t, DefaultThreshold, d.Threshold())
}

func TestDistanceRanker_DoesNotMutateInput(t *testing.T) {
	input := []docstore.ScoredRecord{scored("a", 0.5), scored("b", 0.1)}
	New().Rank(input, 10)
	assert.Equal(t, []string{"a", "b"}, ids(input))
}
