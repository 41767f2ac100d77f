package collection

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/knoguchi/freightquote/internal/quote"
	"github.com/stretchr/testify/assert"
)

type stubProber struct {
	exists bool
	err    error
	calls  int
}

func (p *stubProber) CollectionExists(ctx context.Context, collection string) (bool, error) {
	p.calls++
	return p.exists, p.err
}

func TestSelector_Select(t *testing.T) {
	tests := []struct {
		name   string
		prober *stubProber
		want   Selection
	}{
		{
			name:   "current available",
			prober: &stubProber{exists: true},
			want:   Selection{Name: "FreightQuotes_Vectorized", Schema: quote.SchemaCurrent},
		},
		{
			name:   "current absent",
			prober: &stubProber{exists: false},
			want:   Selection{Name: "FreightQuotes_Opus", Schema: quote.SchemaLegacy},
		},
		{
			name:   "collection not found",
			prober: &stubProber{err: fmt.Errorf("%w: FreightQuotes_Vectorized", quote.ErrCollectionNotFound)},
			want:   Selection{Name: "FreightQuotes_Opus", Schema: quote.SchemaLegacy},
		},
		{
			name:   "store unavailable",
			prober: &stubProber{err: fmt.Errorf("%w: %w", quote.ErrStoreUnavailable, errors.New("dial tcp: refused"))},
			want:   Selection{Name: "FreightQuotes_Opus", Schema: quote.SchemaLegacy},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelector(tt.prober, "FreightQuotes_Vectorized", "FreightQuotes_Opus", nil)
			assert.Equal(t, tt.want, s.Select(context.Background()))
		})
	}
}

func TestSelector_ProbesEveryRequest(t *testing.T) {
	p := &stubProber{exists: true}
	s := NewSelector(p, "FreightQuotes_Vectorized", "FreightQuotes_Opus", nil)

	s.Select(context.Background())
	p.exists = false
	got := s.Select(context.Background())

	assert.Equal(t, 2, p.calls)
	assert.Equal(t, quote.SchemaLegacy, got.Schema)
}
