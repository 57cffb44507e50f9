package pipeline

import (
	"fmt"

	"github.com/ajitpratap0/phaeton/pkg/operator"
	"github.com/ajitpratap0/phaeton/pkg/sink"
	"github.com/ajitpratap0/phaeton/pkg/source"
)

// KindIngest is the kind of a root node.
const KindIngest operator.Kind = "ingest"

// Node is one immutable step of a pipeline graph.
type Node struct {
	id     uint64
	parent *Node
	// position is the 1-based index among non-root nodes
	position int
	kind     operator.Kind

	op     operator.Operator
	src    source.Source
	writer sink.Writer
	target string
	peek   *sink.Memory
}

// ID returns the node's graph-unique identifier.
func (n *Node) ID() uint64 { return n.id }

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Kind returns the operator kind, KindIngest for a root.
func (n *Node) Kind() operator.Kind { return n.kind }

// Position returns the 1-based position of the node in its pipeline. Roots
// are at position 0.
func (n *Node) Position() int { return n.position }

// StageID returns the identifier used in reject reasons and diagnostics.
func (n *Node) StageID() string {
	return fmt.Sprintf("%s#%d", n.kind, n.position)
}

// Operator returns the operator of a transform node, or nil.
func (n *Node) Operator() operator.Operator { return n.op }

// Source returns the source of a root node, or nil.
func (n *Node) Source() source.Source { return n.src }

// Writer returns the writer of a dump or quarantine node, or nil.
func (n *Node) Writer() sink.Writer { return n.writer }

// Target returns the URI a dump or quarantine writer was resolved from.
func (n *Node) Target() string { return n.target }

// Peek returns the capture buffer of a peek node, or nil.
func (n *Node) Peek() *sink.Memory { return n.peek }

// IsTerminal reports whether the node is a sink.
func (n *Node) IsTerminal() bool {
	switch n.kind {
	case operator.KindDump, operator.KindQuarantine, operator.KindPeek:
		return true
	}
	return false
}

func (n *Node) String() string {
	if n.parent == nil {
		return fmt.Sprintf("ingest(%s)", n.src.Name())
	}
	return n.StageID()
}
