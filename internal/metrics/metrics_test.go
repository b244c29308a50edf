package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRequestsTotalIncrements(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("rest", OutcomeHit))
	RequestsTotal.WithLabelValues("rest", OutcomeHit).Inc()
	after := testutil.ToFloat64(RequestsTotal.WithLabelValues("rest", OutcomeHit))
	assert.Equal(t, before+1, after)
}

func TestSaturationEventsIncrements(t *testing.T) {
	before := testutil.ToFloat64(SaturationEvents)
	SaturationEvents.Inc()
	after := testutil.ToFloat64(SaturationEvents)
	assert.Equal(t, before+1, after)
}

func TestBatchSizeGaugeSet(t *testing.T) {
	BatchSize.WithLabelValues("content").Set(50)
	assert.Equal(t, float64(50), testutil.ToFloat64(BatchSize.WithLabelValues("content")))
	BatchSize.WithLabelValues("content").Set(25)
	assert.Equal(t, float64(25), testutil.ToFloat64(BatchSize.WithLabelValues("content")))
}
