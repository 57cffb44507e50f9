// Package engine streams one pipeline from its source to its sinks.
//
// The source is read in fixed-size chunks. Stages before the first stateful
// one are applied to chunks in parallel on a shared worker pool; the
// remaining stages, the sink writes and the quarantine routing happen in a
// single committer that takes chunks strictly in source order. Memory is
// bounded by the number of chunks allowed in flight.
package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ajitpratap0/phaeton/internal/quarantine"
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/logger"
	"github.com/ajitpratap0/phaeton/pkg/metrics"
	"github.com/ajitpratap0/phaeton/pkg/observability"
	"github.com/ajitpratap0/phaeton/pkg/operator"
	"github.com/ajitpratap0/phaeton/pkg/pipeline"
	"github.com/ajitpratap0/phaeton/pkg/pool"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/ajitpratap0/phaeton/pkg/source"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultBatchSize is the chunk size used when none is configured.
const DefaultBatchSize = 10000

// savedRows recycles the per-chunk buffers of rows bound for the sink.
var savedRows = pool.NewSlices[*record.Record](DefaultBatchSize)

// Stats reports one pipeline execution.
type Stats struct {
	Pipeline    string
	Processed   int64
	Saved       int64
	Quarantined int64
	Deduped     int64
	// QuarantineWritten counts rejected rows persisted to a quarantine
	// sink. It stays zero when the pipeline has none.
	QuarantineWritten int64
	Duration          time.Duration
	// Err is the fatal error that aborted the pipeline, if any.
	Err error
}

// Balanced reports whether every processed row was either saved or
// quarantined.
func (s Stats) Balanced() bool { return s.Processed == s.Saved+s.Quarantined }

// Options configures a Runner.
type Options struct {
	BatchSize int
	// MaxInflight bounds the chunks read but not yet committed.
	MaxInflight int
	// Pool is shared by every pipeline of one Exec. Nil allows one
	// chunk at a time.
	Pool   *semaphore.Weighted
	Logger *zap.Logger
}

// Runner executes pipelines.
type Runner struct {
	batchSize   int
	maxInflight int
	pool        *semaphore.Weighted
	logger      *zap.Logger
	chunkRows   *observability.ChunkRows
}

// NewRunner creates a runner.
func NewRunner(opts Options) *Runner {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 2
	}
	if opts.Pool == nil {
		opts.Pool = semaphore.NewWeighted(1)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Get()
	}
	return &Runner{
		batchSize:   opts.BatchSize,
		maxInflight: opts.MaxInflight,
		pool:        opts.Pool,
		logger:      opts.Logger.With(zap.String("component", "engine")),
		chunkRows:   observability.NewChunkRows(),
	}
}

// chunk is a batch of rows moving from the reader to the committer.
type chunk struct {
	seq  int64
	rows []*record.Record
	// orig holds pristine copies for the quarantine sink.
	orig []*record.Record
	// rejected is set for rows the prefix stopped.
	rejected []*quarantine.Entry
	err      error
}

func (c *chunk) original(i int) *record.Record {
	if c.orig != nil {
		return c.orig[i]
	}
	return c.rows[i]
}

// execution is the state of one pipeline run.
type execution struct {
	*Runner
	plan   *Plan
	router *quarantine.Router
	stats  *Stats
	metric *metrics.Collector
	log    *zap.Logger
}

// Run executes p to completion. Failures are reported in Stats.Err; a
// failing pipeline never affects other pipelines.
func (r *Runner) Run(ctx context.Context, p *pipeline.Pipeline) (stats Stats) {
	start := time.Now()
	stats.Pipeline = p.Tag()

	ctx = logger.WithPipeline(ctx, p.Tag())
	ctx, span := observability.StartPipeline(ctx, p.Tag(), len(p.Stages()))
	log := logger.FromContext(ctx, r.logger)
	collector := metrics.NewCollector(p.Tag())

	defer func() {
		stats.Duration = time.Since(start)
		rps := collector.Finished(int(stats.Processed), stats.Duration)
		span.SetAttribute("phaeton.processed", stats.Processed)
		span.SetAttribute("phaeton.quarantined", stats.Quarantined)
		span.End(stats.Err)

		if stats.Err != nil {
			collector.Failed()
			log.Error("pipeline failed",
				zap.Int64("processed", stats.Processed),
				zap.Duration("duration", stats.Duration),
				zap.Error(stats.Err))
			return
		}
		log.Info("pipeline completed",
			zap.Int64("processed", stats.Processed),
			zap.Int64("saved", stats.Saved),
			zap.Int64("quarantined", stats.Quarantined),
			zap.Int64("deduped", stats.Deduped),
			zap.Duration("duration", stats.Duration),
			zap.Float64("throughput_rps", rps))
	}()

	src := p.Source()
	if src == nil {
		stats.Err = errors.New(errors.ErrorTypeConfiguration, "pipeline has no source")
		return stats
	}
	rd, err := src.Open(ctx)
	if err != nil {
		stats.Err = errors.Wrap(err, errors.ErrorTypeEngine, fmt.Sprintf("failed to open source %s", src.Name()))
		return stats
	}
	defer rd.Close()

	plan, err := Compile(p, rd.Header())
	if err != nil {
		stats.Err = err
		return stats
	}
	router, err := quarantine.NewRouter(plan.quarantine, plan.Input)
	if err != nil {
		stats.Err = err
		return stats
	}

	log.Info("pipeline started",
		zap.Int("stages", plan.Stages()),
		zap.Int("ordered_stages", plan.Ordered()),
		zap.Int("batch_size", r.batchSize),
		zap.Bool("quarantine_sink", router.Persistent()))

	x := &execution{Runner: r, plan: plan, router: router, stats: &stats, metric: collector, log: log}
	stats.Err = x.execute(ctx, rd)
	stats.QuarantineWritten = router.Written()
	return stats
}

func (x *execution) execute(ctx context.Context, rd source.Reader) (err error) {
	if err := x.plan.dump.Open(ctx, x.plan.Output); err != nil {
		return errors.Wrap(err, errors.ErrorTypeEngine, "failed to open sink")
	}
	if err := x.router.Open(ctx); err != nil {
		_ = x.plan.dump.Close(ctx)
		return errors.Wrap(err, errors.ErrorTypeEngine, "failed to open quarantine")
	}
	defer func() {
		// sinks are flushed even after a fatal error so committed rows survive
		if cerr := x.plan.dump.Close(ctx); cerr != nil {
			err = multierr.Append(err, errors.Wrap(cerr, errors.ErrorTypeEngine, "failed to close sink"))
		}
		if cerr := x.router.Close(ctx); cerr != nil {
			err = multierr.Append(err, errors.Wrap(cerr, errors.ErrorTypeEngine, "failed to close quarantine"))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inflight := semaphore.NewWeighted(int64(x.maxInflight))
	results := make(chan *chunk, x.maxInflight)
	var readErr error

	go func() {
		var wg sync.WaitGroup
		defer close(results)
		defer wg.Wait()
		readErr = x.read(ctx, rd, inflight, results, &wg)
	}()

	pending := make(map[int64]*chunk)
	var next int64
	var fatalErr error
	for c := range results {
		pending[c.seq] = c
		for {
			c, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if fatalErr == nil {
				if fatalErr = x.commit(ctx, c); fatalErr != nil {
					cancel()
				}
			}
			inflight.Release(1)
		}
	}

	if fatalErr != nil {
		return fatalErr
	}
	return readErr
}

// read pulls chunks from the source and hands each to the worker pool.
func (x *execution) read(ctx context.Context, rd source.Reader, inflight *semaphore.Weighted, results chan<- *chunk, wg *sync.WaitGroup) error {
	var read int
	for seq := int64(0); ; seq++ {
		if err := inflight.Acquire(ctx, 1); err != nil {
			return errors.Wrap(err, errors.ErrorTypeEngine, "pipeline cancelled")
		}

		n := x.batchSize
		if x.plan.limit > 0 {
			n = min(n, x.plan.limit-read)
			if n <= 0 {
				inflight.Release(1)
				return nil
			}
		}

		timer := metrics.NewTimer()
		rows, err := rd.Read(ctx, n)
		x.metric.ObserveChunk(metrics.PhaseRead, timer.Stop())
		if err != nil && err != io.EOF {
			inflight.Release(1)
			if t := errors.TypeOf(err); t == errors.ErrorTypeValue || t == errors.ErrorTypeSchema {
				return err
			}
			return errors.Wrap(err, errors.ErrorTypeEngine, "failed to read source")
		}
		if len(rows) == 0 {
			inflight.Release(1)
			return nil
		}
		read += len(rows)
		x.chunkRows.Record(ctx, x.plan.Tag, len(rows))

		c := &chunk{seq: seq, rows: rows}
		wg.Add(1)
		go func() {
			defer wg.Done()
			x.prepare(ctx, c)
			results <- c
		}()

		if err == io.EOF {
			return nil
		}
	}
}

// prepare applies the stateless prefix to a chunk on the shared pool.
func (x *execution) prepare(ctx context.Context, c *chunk) {
	if x.router.Persistent() {
		c.orig = make([]*record.Record, len(c.rows))
		for i, row := range c.rows {
			c.orig[i] = row.Clone()
		}
	}
	if len(x.plan.prefix) == 0 {
		return
	}

	if err := x.pool.Acquire(ctx, 1); err != nil {
		c.err = errors.Wrap(err, errors.ErrorTypeEngine, "pipeline cancelled")
		return
	}
	defer x.pool.Release(1)
	defer func() {
		if p := recover(); p != nil {
			c.err = errors.Newf(errors.ErrorTypeEngine, "stage panicked: %v", p)
		}
	}()

	timer := metrics.NewTimer()
	c.rejected = make([]*quarantine.Entry, len(c.rows))
	for i, row := range c.rows {
		v := apply(x.plan.prefix, row)
		if v.err != nil {
			c.err = v.err
			return
		}
		if v.rejected {
			c.rejected[i] = &quarantine.Entry{Row: c.original(i), StageID: v.step.id, Kind: v.step.kind, Reason: v.reason}
		}
	}
	x.metric.ObserveChunk(metrics.PhaseApply, timer.Stop())
}

// commit applies the ordered suffix to a chunk and writes the results. A
// fatal error discards the whole chunk.
func (x *execution) commit(ctx context.Context, c *chunk) (err error) {
	if c.err != nil {
		return c.err
	}

	ctx, span := observability.StartChunk(ctx, c.seq, len(c.rows))
	defer func() { span.End(err) }()
	defer func() {
		if p := recover(); p != nil {
			err = errors.Newf(errors.ErrorTypeEngine, "stage panicked: %v", p)
		}
	}()

	timer := metrics.NewTimer()
	buf := savedRows.Get()
	defer savedRows.Put(buf)
	saved, entries, deduped, err := x.settle(ctx, c, (*buf)[:0])
	if saved != nil {
		*buf = saved
	}
	if err != nil {
		return err
	}

	if len(saved) > 0 {
		if err := x.plan.dump.Write(ctx, saved); err != nil {
			return errors.Wrap(err, errors.ErrorTypeEngine, "failed to write sink")
		}
	}
	if err := x.router.Route(ctx, entries); err != nil {
		return errors.Wrap(err, errors.ErrorTypeEngine, "failed to route quarantined rows")
	}
	x.metric.ObserveChunk(metrics.PhaseCommit, timer.Stop())

	x.stats.Processed += int64(len(c.rows))
	x.stats.Saved += int64(len(saved))
	x.stats.Quarantined += int64(len(entries))
	x.stats.Deduped += int64(deduped)

	x.metric.Processed(len(c.rows))
	x.metric.Saved(len(saved))
	x.metric.Deduped(deduped)
	for _, e := range entries {
		x.metric.Quarantined(e.Reason, 1)
	}

	x.log.Debug("chunk committed",
		zap.Int64("seq", c.seq),
		zap.Int("rows", len(c.rows)),
		zap.Int("saved", len(saved)),
		zap.Int("quarantined", len(entries)))
	return nil
}

// settle runs the ordered stages over a chunk and sorts its rows into saved
// and rejected, keeping source order in both.
func (x *execution) settle(ctx context.Context, c *chunk, saved []*record.Record) (_ []*record.Record, entries []quarantine.Entry, deduped int, err error) {
	if len(x.plan.suffix) > 0 {
		if err := x.pool.Acquire(ctx, 1); err != nil {
			return nil, nil, 0, errors.Wrap(err, errors.ErrorTypeEngine, "pipeline cancelled")
		}
		defer x.pool.Release(1)
	}

	for i, row := range c.rows {
		if c.rejected != nil && c.rejected[i] != nil {
			entries = append(entries, *c.rejected[i])
			continue
		}
		v := apply(x.plan.suffix, row)
		switch {
		case v.err != nil:
			return saved, nil, 0, v.err
		case v.rejected:
			if v.step.kind == operator.KindDedupe {
				deduped++
			}
			entries = append(entries, quarantine.Entry{Row: c.original(i), StageID: v.step.id, Kind: v.step.kind, Reason: v.reason})
		default:
			saved = append(saved, row)
		}
	}
	return saved, entries, deduped, nil
}
