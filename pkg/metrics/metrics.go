// Package metrics exposes Phaeton's execution counters as Prometheus
// metrics.
//
// # Basic Usage
//
//	c := metrics.NewCollector("orders_clean")
//	c.Processed(len(rows))
//	c.Quarantined("cast_failed", 3)
//
//	timer := metrics.NewTimer()
//	applyStages(chunk)
//	c.ObserveChunk(metrics.PhaseApply, timer.Stop())
//
// Every metric is registered on the default registry with promauto and is
// labelled by pipeline tag.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chunk phases.
const (
	PhaseRead   = "read"
	PhaseApply  = "apply"
	PhaseCommit = "commit"
)

var (
	// RowsProcessed counts rows whose fate has been decided.
	RowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phaeton_rows_processed_total",
			Help: "Total number of rows processed",
		},
		[]string{"pipeline"},
	)

	// RowsSaved counts rows handed to the clean sink.
	RowsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phaeton_rows_saved_total",
			Help: "Total number of rows written to the clean sink",
		},
		[]string{"pipeline"},
	)

	// RowsQuarantined counts rejected rows by the reason prefix (cast_failed,
	// filtered, duplicate).
	RowsQuarantined = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phaeton_rows_quarantined_total",
			Help: "Total number of rows rejected into quarantine",
		},
		[]string{"pipeline", "reason_kind"},
	)

	// RowsDeduped counts rows rejected as duplicates.
	RowsDeduped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phaeton_rows_deduped_total",
			Help: "Total number of duplicate rows",
		},
		[]string{"pipeline"},
	)

	// ChunkDuration tracks time spent per chunk and phase.
	ChunkDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "phaeton_chunk_duration_seconds",
			Help:    "Time spent on one chunk per phase",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 9), // 0.5ms .. ~33s
		},
		[]string{"pipeline", "phase"},
	)

	// PipelinesActive is the number of pipelines currently executing.
	PipelinesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "phaeton_pipelines_active",
			Help: "Number of pipelines currently executing",
		},
	)

	// PipelineFailures counts pipelines aborted by a fatal error.
	PipelineFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phaeton_pipeline_failures_total",
			Help: "Total number of pipelines aborted by a fatal error",
		},
		[]string{"pipeline"},
	)

	// Throughput is the last observed rows per second of a pipeline.
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "phaeton_throughput_rows_per_second",
			Help: "Rows per second of the most recent pipeline run",
		},
		[]string{"pipeline"},
	)
)

// Collector records metrics for one pipeline. The label lookups are done
// once at construction.
type Collector struct {
	pipeline  string
	processed prometheus.Counter
	saved     prometheus.Counter
	deduped   prometheus.Counter
	failures  prometheus.Counter
	mu        sync.Mutex
	reasons   map[string]prometheus.Counter
}

// NewCollector creates a collector for a pipeline tag.
func NewCollector(pipeline string) *Collector {
	return &Collector{
		pipeline:  pipeline,
		processed: RowsProcessed.WithLabelValues(pipeline),
		saved:     RowsSaved.WithLabelValues(pipeline),
		deduped:   RowsDeduped.WithLabelValues(pipeline),
		failures:  PipelineFailures.WithLabelValues(pipeline),
		reasons:   make(map[string]prometheus.Counter),
	}
}

// Processed adds n processed rows.
func (c *Collector) Processed(n int) { c.processed.Add(float64(n)) }

// Saved adds n saved rows.
func (c *Collector) Saved(n int) { c.saved.Add(float64(n)) }

// Deduped adds n duplicate rows.
func (c *Collector) Deduped(n int) { c.deduped.Add(float64(n)) }

// Quarantined adds n rejected rows for a reject reason.
func (c *Collector) Quarantined(reason string, n int) {
	kind := ReasonKind(reason)
	c.mu.Lock()
	ctr, ok := c.reasons[kind]
	if !ok {
		ctr = RowsQuarantined.WithLabelValues(c.pipeline, kind)
		c.reasons[kind] = ctr
	}
	c.mu.Unlock()
	ctr.Add(float64(n))
}

// Failed records a fatal pipeline error.
func (c *Collector) Failed() { c.failures.Inc() }

// ObserveChunk records the duration of one chunk phase.
func (c *Collector) ObserveChunk(phase string, d time.Duration) {
	ChunkDuration.WithLabelValues(c.pipeline, phase).Observe(d.Seconds())
}

// Finished publishes the run throughput.
func (c *Collector) Finished(rows int, d time.Duration) float64 {
	rps := 0.0
	if d > 0 {
		rps = float64(rows) / d.Seconds()
	}
	Throughput.WithLabelValues(c.pipeline).Set(rps)
	return rps
}

// ReasonKind returns the label value for a reject reason: the part before
// the first colon.
func ReasonKind(reason string) string {
	kind, _, _ := strings.Cut(reason, ":")
	if kind == "" {
		return "unknown"
	}
	return kind
}

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration since creation. It can be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
