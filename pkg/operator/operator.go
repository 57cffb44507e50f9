// Package operator implements the per-row transforms, predicates and
// stateful stages a pipeline is built from.
//
// An Operator is an immutable description: its parameters never change once
// constructed, so it can be shared by every pipeline that references it.
// Bind resolves the operator against a concrete header and returns a Stage.
// Every Bind call returns fresh state, which is how dedupe sets and
// forward-fill carries stay exclusive to one pipeline branch.
package operator

import (
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/record"
)

// Kind names an operator.
type Kind string

const (
	KindScrub      Kind = "scrub"
	KindCast       Kind = "cast"
	KindKeep       Kind = "keep"
	KindDiscard    Kind = "discard"
	KindPrune      Kind = "prune"
	KindFuzzyAlign Kind = "fuzzyalign"
	KindHash       Kind = "hash"
	KindMap        Kind = "map"
	KindHeaders    Kind = "headers"
	KindRename     Kind = "rename"
	KindDedupe     Kind = "dedupe"
	KindFill       Kind = "fill"
	KindFork       Kind = "fork"

	// Terminal kinds. They are attached to pipeline nodes directly and have
	// no Operator implementation.
	KindDump       Kind = "dump"
	KindQuarantine Kind = "quarantine"
	KindPeek       Kind = "peek"
)

// Env is the binding environment of one stage.
type Env struct {
	Header  *record.Header
	StageID string
}

// Operator describes one pipeline stage.
type Operator interface {
	Kind() Kind
	// Stateful reports whether the stage must see the stream in source order.
	Stateful() bool
	// Columns lists the input columns the operator reads.
	Columns() []string
	// Check returns parameter problems without looking at any header.
	Check() []string
	// Derive threads a schema through the operator without reading data.
	Derive(in record.Schema) (record.Schema, error)
	// Bind compiles the operator for a header and returns its stage and
	// output header.
	Bind(env Env) (Stage, *record.Header, error)
}

// Stage applies a bound operator to one record, mutating it in place.
type Stage interface {
	Apply(r *record.Record) Outcome
}

// StageFunc adapts a function to Stage.
type StageFunc func(r *record.Record) Outcome

// Apply implements Stage.
func (f StageFunc) Apply(r *record.Record) Outcome { return f(r) }

// Verdict is the result class of applying a stage.
type Verdict uint8

const (
	// Continue hands the record to the next stage.
	Continue Verdict = iota
	// Reject routes the record to quarantine.
	Reject
	// Fatal aborts the owning pipeline.
	Fatal
)

// Outcome is the result of Stage.Apply.
type Outcome struct {
	Verdict Verdict
	Reason  string
	Err     error
}

// Pass is the Continue outcome.
func Pass() Outcome { return Outcome{} }

// Rejected returns a Reject outcome with a reason.
func Rejected(reason string) Outcome { return Outcome{Verdict: Reject, Reason: reason} }

// Failed returns a Fatal outcome.
func Failed(err error) Outcome { return Outcome{Verdict: Fatal, Err: err} }

// Reject reasons.
const (
	ReasonDuplicate = "duplicate"
)

// ReasonColumn is appended to quarantined rows and holds the reject reason.
const ReasonColumn = "_phaeton_reason"

// CastFailed is the reject reason of a failed cast.
func CastFailed(col string) string { return "cast_failed:" + col }

// Filtered is the reject reason of a predicate stage.
func Filtered(stageID string) string { return "filtered:" + stageID }

// resolve maps column names to positions, reporting every missing column at once.
func resolve(h *record.Header, cols []string) ([]int, error) {
	idx := make([]int, 0, len(cols))
	var ds errors.Diagnostics
	for _, c := range cols {
		i, ok := h.Index(c)
		if !ok {
			ds.Addf("", "", c, "column does not exist")
			continue
		}
		idx = append(idx, i)
	}
	if err := ds.Err(errors.ErrorTypeSchema); err != nil {
		return nil, err
	}
	return idx, nil
}

// all returns every position of a header.
func all(h *record.Header) []int {
	idx := make([]int, h.Len())
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// checked fails a Bind when Check reports problems.
func checked(op Operator) error {
	problems := op.Check()
	if len(problems) == 0 {
		return nil
	}
	var ds errors.Diagnostics
	for _, p := range problems {
		ds.Addf("", string(op.Kind()), "", "%s", p)
	}
	return ds.Err(errors.ErrorTypeConfiguration)
}

// setType returns a copy of s with the named column retyped.
func setType(s record.Schema, col string, k record.Kind) record.Schema {
	out := record.Schema{Fields: append([]record.Field(nil), s.Fields...)}
	for i := range out.Fields {
		if out.Fields[i].Name == col {
			out.Fields[i].Type = k
		}
	}
	return out
}

// base holds the parts shared by column-addressed operators.
type base struct {
	kind Kind
	cols []string
}

func (b base) Kind() Kind { return b.kind }

func (b base) Stateful() bool { return false }

func (b base) Columns() []string { return append([]string(nil), b.cols...) }

func (b base) Derive(in record.Schema) (record.Schema, error) { return in, nil }
