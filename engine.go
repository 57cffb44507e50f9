package phaeton

import (
	"context"
	"time"

	"github.com/ajitpratap0/phaeton/internal/engine"
	"github.com/ajitpratap0/phaeton/internal/scheduler"
	"github.com/ajitpratap0/phaeton/pkg/config"
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/logger"
	"github.com/ajitpratap0/phaeton/pkg/observability"
	"github.com/ajitpratap0/phaeton/pkg/pipeline"
	"github.com/ajitpratap0/phaeton/pkg/schema"
	"github.com/ajitpratap0/phaeton/pkg/source"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Version is the engine version reported by the CLI and in traces.
const Version = "0.4.0"

// Stats reports one pipeline execution.
type Stats = engine.Stats

// Engine builds and executes pipelines.
type Engine struct {
	cfg       *config.EngineConfig
	graph     *pipeline.Graph
	scheduler *scheduler.Scheduler
	logger    *zap.Logger
	newRunID  func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The global logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithGraph makes the engine add its roots to g.
func WithGraph(g *pipeline.Graph) Option {
	return func(e *Engine) { e.graph = g }
}

// WithRunIDs overrides how Exec run ids are generated.
func WithRunIDs(fn func() string) Option {
	return func(e *Engine) { e.newRunID = fn }
}

// New creates an engine. A nil cfg uses the defaults.
func New(cfg *config.EngineConfig, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.NewEngineConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		graph:    pipeline.NewGraph(),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get()
	}
	e.logger = e.logger.With(zap.String("component", "phaeton"))
	e.scheduler = scheduler.New(cfg.GetWorkers(), cfg.GetMaxInflightChunks(), e.logger,
		scheduler.WithBatchSize(cfg.GetBatchSize()))
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.EngineConfig { return e.cfg }

// Graph returns the graph holding every pipeline built by this engine.
func (e *Engine) Graph() *pipeline.Graph { return e.graph }

// Ingest starts a pipeline reading src. An empty tag uses the source name.
// In strict mode the source header is read at once; a source whose header
// cannot be read yields a SchemaError.
func (e *Engine) Ingest(src source.Source, tag string) (*pipeline.Pipeline, error) {
	p := e.graph.Ingest(src, tag)
	if err := p.Err(); err != nil {
		return nil, err
	}
	if e.cfg.Strict {
		if _, err := src.Header(context.Background()); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSchema, "failed to read header of "+src.Name())
		}
	}
	return p, nil
}

// IngestFile starts a pipeline reading the delimited file at path.
func (e *Engine) IngestFile(path string, dialect source.Dialect) (*pipeline.Pipeline, error) {
	return e.Ingest(source.NewCSV(path, dialect), "")
}

// Probe inspects the start of a file and reports its likely encoding,
// delimiter and header. It reads no more than a few kilobytes.
func (e *Engine) Probe(path string) (source.Metadata, error) {
	return source.ProbeFile(path)
}

// Validate checks pipelines against their source headers without executing
// them. Every finding is returned; an empty result means all pipelines are
// ready to run.
func (e *Engine) Validate(ctx context.Context, ps ...*pipeline.Pipeline) errors.Diagnostics {
	var ds errors.Diagnostics
	for _, p := range ps {
		ds = append(ds, e.validate(ctx, p)...)
	}
	return ds
}

func (e *Engine) validate(ctx context.Context, p *pipeline.Pipeline) errors.Diagnostics {
	src := p.Source()
	if src == nil {
		return errors.Diagnostics{{Type: errors.ErrorTypeConfiguration, Pipeline: p.Tag(), Message: "pipeline has no source"}}
	}
	h, err := src.Header(ctx)
	if err != nil {
		ds := schema.Check(p)
		ds.Add(errors.Diagnostic{Type: errors.ErrorTypeSchema, Pipeline: p.Tag(),
			Message: "cannot read source header: " + err.Error()})
		return ds
	}
	return schema.Validate(p, h)
}

// Exec runs pipelines and returns their stats in submission order.
//
// Lifecycle problems (an executed handle, a handle submitted twice) yield a
// StateError. Structural and parameter problems, and in strict mode column
// problems, yield a ConfigurationError or SchemaError; in both cases nothing
// is read. Otherwise every pipeline runs, and the returned error combines
// the failures recorded in the individual Stats.
func (e *Engine) Exec(ctx context.Context, ps ...*pipeline.Pipeline) ([]Stats, error) {
	if len(ps) == 0 {
		return nil, nil
	}

	runID := e.newRunID()
	ctx = logger.WithRunID(ctx, runID)
	ctx, span := observability.StartRun(ctx, runID, len(ps))
	log := logger.FromContext(ctx, e.logger)

	stats, err := e.exec(ctx, log, ps)
	span.End(err)
	return stats, err
}

func (e *Engine) exec(ctx context.Context, log *zap.Logger, ps []*pipeline.Pipeline) ([]Stats, error) {
	if err := e.admit(ps); err != nil {
		return nil, err
	}

	var ds errors.Diagnostics
	for _, p := range ps {
		if e.cfg.Strict {
			ds = append(ds, e.validate(ctx, p)...)
		} else {
			ds = append(ds, schema.Check(p)...)
		}
	}
	if len(ds) > 0 {
		err := ds.Aggregate()
		log.Warn("pipelines rejected before execution", zap.Int("problems", len(ds)), zap.Error(err))
		return nil, err
	}

	for _, p := range ps {
		if !p.MarkConsumed() {
			return nil, errors.Newf(errors.ErrorTypeState, "pipeline %q has already been executed", p.Tag())
		}
	}

	start := time.Now()
	log.Info("executing pipelines",
		zap.Int("pipelines", len(ps)),
		zap.Int("workers", e.scheduler.Workers()),
		zap.Int("batch_size", e.cfg.GetBatchSize()),
		zap.Bool("strict", e.cfg.Strict))

	stats := e.scheduler.Run(ctx, ps)

	var err error
	var processed int64
	for _, st := range stats {
		err = multierr.Append(err, st.Err)
		processed += st.Processed
	}
	log.Info("execution finished",
		zap.Int64("processed", processed),
		zap.Int("failed", len(multierr.Errors(err))),
		zap.Duration("duration", time.Since(start)))
	return stats, err
}

// admit rejects handles that cannot be executed.
func (e *Engine) admit(ps []*pipeline.Pipeline) error {
	leaves := make(map[*pipeline.Node]string, len(ps))
	for _, p := range ps {
		if p == nil {
			return errors.New(errors.ErrorTypeConfiguration, "nil pipeline")
		}
		if err := p.Err(); errors.IsType(err, errors.ErrorTypeState) {
			return err
		}
		if p.Consumed() {
			return errors.Newf(errors.ErrorTypeState, "pipeline %q has already been executed", p.Tag())
		}
		// handles sharing a leaf would share its sink
		if prev, dup := leaves[p.Leaf()]; dup {
			return errors.Newf(errors.ErrorTypeState, "pipelines %q and %q end in the same stage", prev, p.Tag())
		}
		leaves[p.Leaf()] = p.Tag()
	}
	return nil
}
