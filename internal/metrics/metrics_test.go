package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSearch(t *testing.T) {
	before := testutil.ToFloat64(SearchTotal.WithLabelValues("semantic", "current", "ok"))
	RecordSearch("semantic", "current", "ok", 3, 0.05)
	assert.Equal(t, before+1, testutil.ToFloat64(SearchTotal.WithLabelValues("semantic", "current", "ok")))
}

func TestRecordFallbackAndError(t *testing.T) {
	RecordFallback("keyword")
	RecordError("search", "store_unavailable")
	assert.GreaterOrEqual(t, testutil.ToFloat64(FallbacksTotal.WithLabelValues("keyword")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(ErrorsTotal.WithLabelValues("search", "store_unavailable")), 1.0)
}
