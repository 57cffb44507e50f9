package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestReasonKind(t *testing.T) {
	assert.Equal(t, "cast_failed", ReasonKind("cast_failed:amount"))
	assert.Equal(t, "filtered", ReasonKind("filtered:keep#2"))
	assert.Equal(t, "duplicate", ReasonKind("duplicate"))
	assert.Equal(t, "unknown", ReasonKind(""))
}

func TestCollectorCounts(t *testing.T) {
	c := NewCollector("metrics_test")
	c.Processed(10)
	c.Saved(7)
	c.Quarantined("cast_failed:amount", 2)
	c.Quarantined("duplicate", 1)
	c.Deduped(1)

	assert.Equal(t, 10.0, testutil.ToFloat64(RowsProcessed.WithLabelValues("metrics_test")))
	assert.Equal(t, 7.0, testutil.ToFloat64(RowsSaved.WithLabelValues("metrics_test")))
	assert.Equal(t, 2.0, testutil.ToFloat64(RowsQuarantined.WithLabelValues("metrics_test", "cast_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(RowsQuarantined.WithLabelValues("metrics_test", "duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(RowsDeduped.WithLabelValues("metrics_test")))

	assert.InDelta(t, 100.0, c.Finished(100, time.Second), 1e-9)
	assert.Equal(t, 0.0, c.Finished(5, 0))
}
