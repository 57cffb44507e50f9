package engine

import (
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/operator"
	"github.com/ajitpratap0/phaeton/pkg/pipeline"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/ajitpratap0/phaeton/pkg/sink"
)

// step is one bound stage.
type step struct {
	id    string
	kind  operator.Kind
	stage operator.Stage
}

// Plan is a pipeline bound to a concrete source header. Every Compile binds
// fresh stage state, so two plans never share a dedupe set or fill carry,
// even when their pipelines share ancestors.
type Plan struct {
	Tag string

	// Input is the source header; Output is the header of saved rows.
	Input  *record.Header
	Output *record.Header

	// Prefix holds the stages before the first stateful one. They see
	// rows independently and may run out of order.
	prefix []step
	// Suffix holds the rest and runs in source order.
	suffix []step

	dump       sink.Writer
	quarantine sink.Writer
	limit      int
}

// Compile binds the stages of p to the source header h.
func Compile(p *pipeline.Pipeline, h *record.Header) (*Plan, error) {
	if err := p.Err(); err != nil {
		return nil, err
	}

	plan := &Plan{Tag: p.Tag(), Input: h, limit: p.RowLimit()}
	cur := h
	ordered := false

	for _, n := range p.Stages() {
		switch n.Kind() {
		case operator.KindQuarantine:
			plan.quarantine = n.Writer()
			continue
		case operator.KindDump:
			plan.dump = n.Writer()
			continue
		case operator.KindPeek:
			plan.dump = n.Peek()
			continue
		}

		op := n.Operator()
		stage, out, err := op.Bind(operator.Env{Header: cur, StageID: n.StageID()})
		if err != nil {
			if errors.TypeOf(err) == "" {
				err = errors.Wrap(err, errors.ErrorTypeSchema, "failed to bind "+n.StageID())
			}
			return nil, err
		}
		cur = out
		if stage == nil {
			continue
		}

		ordered = ordered || op.Stateful()
		s := step{id: n.StageID(), kind: n.Kind(), stage: stage}
		if ordered {
			plan.suffix = append(plan.suffix, s)
		} else {
			plan.prefix = append(plan.prefix, s)
		}
	}

	if plan.dump == nil {
		return nil, errors.Newf(errors.ErrorTypeConfiguration, "pipeline %q has no sink", p.Tag())
	}
	plan.Output = cur
	return plan, nil
}

// Stages returns the number of bound stages.
func (p *Plan) Stages() int { return len(p.prefix) + len(p.suffix) }

// Ordered returns the number of stages that run in source order.
func (p *Plan) Ordered() int { return len(p.suffix) }

// verdict is the fate of one row after a run of steps.
type verdict struct {
	rejected bool
	step     step
	reason   string
	err      error
}

// apply runs steps on r until one of them stops the row.
func apply(steps []step, r *record.Record) verdict {
	for _, s := range steps {
		out := s.stage.Apply(r)
		switch out.Verdict {
		case operator.Continue:
			continue
		case operator.Reject:
			return verdict{rejected: true, step: s, reason: out.Reason}
		default:
			return verdict{step: s, err: fatal(out.Err, s.id)}
		}
	}
	return verdict{}
}

// fatal types a stage failure. Value and schema errors keep their type;
// anything else aborts the pipeline as an engine error.
func fatal(err error, stageID string) error {
	if err == nil {
		return errors.Newf(errors.ErrorTypeEngine, "stage %s failed", stageID)
	}
	switch errors.TypeOf(err) {
	case errors.ErrorTypeValue, errors.ErrorTypeSchema, errors.ErrorTypeEngine:
		return err
	}
	return errors.Wrap(err, errors.ErrorTypeEngine, "stage "+stageID+" failed")
}
