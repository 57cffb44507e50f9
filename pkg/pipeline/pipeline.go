package pipeline

import (
	"fmt"
	"sync/atomic"

	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/operator"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/ajitpratap0/phaeton/pkg/sink"
	"github.com/ajitpratap0/phaeton/pkg/source"
)

// Pipeline is an immutable handle on a graph leaf. Builder methods return
// new handles and never modify the receiver.
type Pipeline struct {
	graph *Graph
	leaf  *Node
	tag   string
	limit int
	// err is sticky: it is inherited by every derived handle
	err      error
	consumed *atomic.Bool
}

// Tag returns the pipeline's human-readable tag.
func (p *Pipeline) Tag() string { return p.tag }

// Err returns the first problem recorded while building the handle.
func (p *Pipeline) Err() error { return p.err }

// Leaf returns the handle's leaf node.
func (p *Pipeline) Leaf() *Node { return p.leaf }

// Graph returns the graph the handle belongs to.
func (p *Pipeline) Graph() *Graph { return p.graph }

// RowLimit returns the row limit, 0 for none.
func (p *Pipeline) RowLimit() int { return p.limit }

// Consumed reports whether the handle has been executed.
func (p *Pipeline) Consumed() bool { return p.consumed.Load() }

// MarkConsumed flags the handle as executed. It returns false when it was
// already consumed.
func (p *Pipeline) MarkConsumed() bool { return p.consumed.CompareAndSwap(false, true) }

// Source returns the source of the pipeline's root.
func (p *Pipeline) Source() source.Source {
	n := p.leaf
	for n.parent != nil {
		n = n.parent
	}
	return n.src
}

// Stages returns the nodes from the first stage after ingest to the leaf.
func (p *Pipeline) Stages() []*Node {
	var out []*Node
	for n := p.leaf; n.parent != nil; n = n.parent {
		out = append(out, n)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Terminal returns the leaf when it is a sink, otherwise nil.
func (p *Pipeline) Terminal() *Node {
	if p.leaf.IsTerminal() {
		return p.leaf
	}
	return nil
}

// Peeked returns the rows captured by a terminal Peek.
func (p *Pipeline) Peeked() []*record.Record {
	if p.leaf.peek == nil {
		return nil
	}
	return p.leaf.peek.Rows()
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("<Pipeline %s | stages: %d>", p.tag, p.leaf.position)
}

// derive returns a copy of the handle with a fresh consumed flag.
func (p *Pipeline) derive() *Pipeline {
	return &Pipeline{
		graph:    p.graph,
		leaf:     p.leaf,
		tag:      p.tag,
		limit:    p.limit,
		err:      p.err,
		consumed: new(atomic.Bool),
	}
}

// fail records err unless an earlier problem is already recorded.
func (p *Pipeline) fail(err error) *Pipeline {
	if p.err == nil {
		p.err = err
	}
	return p
}

// add appends n under the leaf.
func (p *Pipeline) add(n *Node) *Pipeline {
	out := p.derive()
	if p.Consumed() {
		out.fail(errors.Newf(errors.ErrorTypeState, "pipeline %q has already been executed", p.tag))
	}
	n.id = p.graph.alloc()
	n.parent = p.leaf
	n.position = p.leaf.position + 1
	out.leaf = n
	return out
}

// Then appends an arbitrary operator.
func (p *Pipeline) Then(op operator.Operator) *Pipeline {
	if op == nil {
		return p.derive().fail(errors.New(errors.ErrorTypeConfiguration, "nil operator"))
	}
	return p.add(&Node{kind: op.Kind(), op: op})
}

// Scrub normalizes a text column.
func (p *Pipeline) Scrub(col string, mode operator.ScrubMode) *Pipeline {
	return p.Then(operator.NewScrub(col, mode))
}

// Cast converts a column to a typed value.
func (p *Pipeline) Cast(col string, dtype operator.DType, opts operator.CastOptions) *Pipeline {
	return p.Then(operator.NewCast(col, dtype, opts))
}

// Keep quarantines rows where no listed column matches any value.
func (p *Pipeline) Keep(cols, matches []string, mode operator.MatchMode) *Pipeline {
	return p.Then(operator.NewKeep(cols, matches, mode))
}

// Discard quarantines rows where any listed column matches any value.
func (p *Pipeline) Discard(cols, matches []string, mode operator.MatchMode) *Pipeline {
	return p.Then(operator.NewDiscard(cols, matches, mode))
}

// Prune quarantines rows with an empty value in any listed column, or in
// any column when none are listed.
func (p *Pipeline) Prune(cols ...string) *Pipeline {
	return p.Then(operator.NewPrune(cols...))
}

// FuzzyAlign snaps a column to its closest reference value.
func (p *Pipeline) FuzzyAlign(col string, ref []string, threshold float64) *Pipeline {
	return p.Then(operator.NewFuzzyAlign(col, ref, threshold))
}

// Hash replaces a column with its salted SHA-256 digest.
func (p *Pipeline) Hash(col, salt string) *Pipeline {
	return p.Then(operator.NewHash(col, salt))
}

// Map replaces values found in mapping.
func (p *Pipeline) Map(col string, mapping map[string]string) *Pipeline {
	return p.Then(operator.NewMap(col, mapping))
}

// Headers renames every column into a naming style.
func (p *Pipeline) Headers(style operator.Style) *Pipeline {
	return p.Then(operator.NewHeaders(style))
}

// Rename renames selected columns.
func (p *Pipeline) Rename(mapping map[string]string) *Pipeline {
	return p.Then(operator.NewRename(mapping))
}

// Dedupe quarantines rows whose key columns repeat an earlier row. No
// columns means the whole row.
func (p *Pipeline) Dedupe(cols ...string) *Pipeline {
	return p.Then(operator.NewDedupe(cols...))
}

// Fill imputes empty values in cols, or every column when cols is empty.
func (p *Pipeline) Fill(cols []string, value record.Value, method operator.FillMethod) *Pipeline {
	return p.Then(operator.NewFill(cols, value, method))
}

// Fork appends a no-op stage so the returned handle can diverge from the
// receiver. An empty tag keeps the current one.
func (p *Pipeline) Fork(tag string) *Pipeline {
	out := p.Then(operator.Fork{})
	if tag != "" {
		out.tag = tag
	}
	return out
}

// Limit caps the number of rows read from the source. Zero removes the cap.
func (p *Pipeline) Limit(n int) *Pipeline {
	out := p.derive()
	if p.Consumed() {
		return out.fail(errors.Newf(errors.ErrorTypeState, "pipeline %q has already been executed", p.tag))
	}
	if n < 0 {
		return out.fail(errors.Newf(errors.ErrorTypeConfiguration, "limit must not be negative, got %d", n))
	}
	out.limit = n
	return out
}

// Quarantine routes rejected rows to w. It must be followed by Dump.
func (p *Pipeline) Quarantine(w sink.Writer) *Pipeline {
	out := p.add(&Node{kind: operator.KindQuarantine, writer: w})
	if w == nil {
		out.fail(errors.New(errors.ErrorTypeConfiguration, "quarantine requires a writer"))
	}
	return out
}

// QuarantineTo routes rejected rows to the sink at uri.
func (p *Pipeline) QuarantineTo(uri string) *Pipeline {
	w, err := sink.Open(uri)
	out := p.add(&Node{kind: operator.KindQuarantine, writer: w, target: uri})
	if err != nil {
		out.fail(err)
	}
	return out
}

// Dump writes surviving rows to w.
func (p *Pipeline) Dump(w sink.Writer) *Pipeline {
	out := p.add(&Node{kind: operator.KindDump, writer: w})
	if w == nil {
		out.fail(errors.New(errors.ErrorTypeConfiguration, "dump requires a writer"))
	}
	return out
}

// DumpTo writes surviving rows to the sink at uri.
func (p *Pipeline) DumpTo(uri string) *Pipeline {
	w, err := sink.Open(uri)
	out := p.add(&Node{kind: operator.KindDump, writer: w, target: uri})
	if err != nil {
		out.fail(err)
	}
	return out
}

// Peek captures the first n surviving rows in memory. Read them back with
// Peeked after execution.
func (p *Pipeline) Peek(n int) *Pipeline {
	out := p.add(&Node{kind: operator.KindPeek, peek: sink.NewMemory(n)})
	if n <= 0 {
		out.fail(errors.Newf(errors.ErrorTypeConfiguration, "peek requires a positive row count, got %d", n))
	}
	return out
}

// Check reports structural problems: a missing sink and misplaced terminal
// stages. It does not look at operator parameters or columns.
func (p *Pipeline) Check() errors.Diagnostics {
	var ds errors.Diagnostics
	if p.err != nil && !errors.IsType(p.err, errors.ErrorTypeState) {
		ds.Add(errors.Diagnostic{Type: errors.TypeOf(p.err), Pipeline: p.tag, Message: p.err.Error()})
	}

	stages := p.Stages()
	if len(stages) == 0 || !isClean(stages[len(stages)-1].kind) {
		ds.Add(errors.Diagnostic{Type: errors.ErrorTypeConfiguration, Pipeline: p.tag, Message: "pipeline has no sink: end it with dump or peek"})
	}
	for i, n := range stages {
		if !n.IsTerminal() {
			continue
		}
		last := i == len(stages)-1
		switch n.kind {
		case operator.KindQuarantine:
			if last || stages[i+1].kind != operator.KindDump {
				ds.Add(errors.Diagnostic{Type: errors.ErrorTypeConfiguration, Pipeline: p.tag, Stage: n.StageID(),
					Message: "quarantine must be immediately followed by dump"})
			}
		default:
			if !last {
				ds.Add(errors.Diagnostic{Type: errors.ErrorTypeConfiguration, Pipeline: p.tag, Stage: n.StageID(),
					Message: fmt.Sprintf("%s must be the last stage", n.kind)})
			}
		}
	}
	return ds
}

// isClean reports whether kind writes surviving rows.
func isClean(kind operator.Kind) bool {
	return kind == operator.KindDump || kind == operator.KindPeek
}
