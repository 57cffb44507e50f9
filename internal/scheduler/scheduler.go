// Package scheduler runs many pipelines at once on one bounded worker pool.
package scheduler

import (
	"context"
	"runtime"
	"time"

	"github.com/ajitpratap0/phaeton/internal/engine"
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/metrics"
	"github.com/ajitpratap0/phaeton/pkg/pipeline"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Scheduler executes independent pipelines concurrently. Every pipeline gets
// its own goroutine for reading and committing; stage work of all pipelines
// shares a pool of worker slots.
type Scheduler struct {
	workers     int
	maxInflight int
	batchSize   int
	logger      *zap.Logger
}

// Option tunes a Scheduler.
type Option func(*Scheduler)

// WithBatchSize sets the rows per chunk.
func WithBatchSize(n int) Option {
	return func(s *Scheduler) { s.batchSize = n }
}

// New creates a scheduler. workers <= 0 uses the CPU count and
// maxInflight <= 0 allows two chunks per worker.
func New(workers, maxInflight int, logger *zap.Logger, opts ...Option) *Scheduler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if maxInflight <= 0 {
		maxInflight = 2 * workers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		workers:     workers,
		maxInflight: maxInflight,
		batchSize:   engine.DefaultBatchSize,
		logger:      logger.With(zap.String("component", "scheduler")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Workers returns the size of the worker pool.
func (s *Scheduler) Workers() int { return s.workers }

// Run executes every pipeline and returns their stats in submission order.
// A pipeline that fails, or panics, reports it in its own Stats.Err and
// never stops its siblings.
func (s *Scheduler) Run(ctx context.Context, jobs []*pipeline.Pipeline) []engine.Stats {
	start := time.Now()
	runner := engine.NewRunner(engine.Options{
		BatchSize:   s.batchSize,
		MaxInflight: s.maxInflight,
		Pool:        semaphore.NewWeighted(int64(s.workers)),
		Logger:      s.logger,
	})

	s.logger.Debug("scheduling pipelines",
		zap.Int("pipelines", len(jobs)),
		zap.Int("workers", s.workers),
		zap.Int("max_inflight_chunks", s.maxInflight))

	out := make([]engine.Stats, len(jobs))
	// no shared context: a failure must not cancel the others
	var g errgroup.Group
	for i, p := range jobs {
		g.Go(func() error {
			metrics.PipelinesActive.Inc()
			defer metrics.PipelinesActive.Dec()
			defer func() {
				if r := recover(); r != nil {
					out[i] = engine.Stats{
						Pipeline: p.Tag(),
						Err:      errors.Newf(errors.ErrorTypeEngine, "pipeline %q panicked: %v", p.Tag(), r),
					}
				}
			}()
			out[i] = runner.Run(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, st := range out {
		if st.Err != nil {
			failed++
		}
	}
	s.logger.Debug("pipelines finished",
		zap.Int("pipelines", len(jobs)),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)))
	return out
}
