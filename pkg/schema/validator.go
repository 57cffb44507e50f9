// Package schema validates pipelines against a source header without
// reading any data.
//
// The validator threads a running schema through the stage list. At every
// stage it checks the operator's parameters against their closed sets and
// the referenced columns against the running schema, then derives the
// stage's output schema, so renames and header restyling are tracked. All
// findings are collected; nothing fails fast.
package schema

import (
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/operator"
	"github.com/ajitpratap0/phaeton/pkg/pipeline"
	"github.com/ajitpratap0/phaeton/pkg/record"
)

// Check returns the structural and parameter findings of a pipeline. It
// needs no header.
func Check(p *pipeline.Pipeline) errors.Diagnostics {
	ds := p.Check()
	for _, n := range p.Stages() {
		if op := n.Operator(); op != nil {
			checkParams(&ds, p.Tag(), n, op)
		}
	}
	return ds
}

// Validate returns every finding of a pipeline against a source header. An
// empty result means the pipeline is well formed and schema consistent.
func Validate(p *pipeline.Pipeline, h *record.Header) errors.Diagnostics {
	_, ds := Infer(p, record.SchemaFromHeader(h))
	return ds
}

// Infer returns the schema the pipeline produces from in, together with
// every finding along the way.
func Infer(p *pipeline.Pipeline, in record.Schema) (record.Schema, errors.Diagnostics) {
	ds := p.Check()
	tag := p.Tag()
	cur := in

	for _, n := range p.Stages() {
		op := n.Operator()
		if op == nil {
			if n.Kind() == operator.KindQuarantine {
				if _, clash := in.Lookup(operator.ReasonColumn); clash {
					ds.Add(errors.Diagnostic{Type: errors.ErrorTypeConfiguration, Pipeline: tag, Stage: n.StageID(),
						Column: operator.ReasonColumn, Message: "source already has the quarantine reason column"})
				}
			}
			continue
		}

		checkParams(&ds, tag, n, op)
		for _, col := range op.Columns() {
			if _, ok := cur.Lookup(col); !ok {
				ds.Add(errors.Diagnostic{Type: errors.ErrorTypeSchema, Pipeline: tag, Stage: n.StageID(),
					Column: col, Message: "column does not exist"})
			}
		}

		// derivation applies to the columns that exist
		out, err := op.Derive(cur)
		if err != nil {
			typ := errors.TypeOf(err)
			if typ == "" {
				typ = errors.ErrorTypeSchema
			}
			ds.Add(errors.Diagnostic{Type: typ, Pipeline: tag, Stage: n.StageID(), Message: err.Error()})
			continue
		}
		cur = out
	}
	return cur, ds
}

func checkParams(ds *errors.Diagnostics, tag string, n *pipeline.Node, op operator.Operator) {
	for _, problem := range op.Check() {
		ds.Add(errors.Diagnostic{Type: errors.ErrorTypeSchema, Pipeline: tag, Stage: n.StageID(), Message: problem})
	}
}
