package pipeline

import (
	"sync/atomic"

	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/source"
)

// Graph allocates the nodes of one or more pipelines. Nodes are never
// mutated or removed once allocated, so handles from the same graph may be
// extended from any goroutine without locking.
type Graph struct {
	next  atomic.Uint64
	roots atomic.Int64
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// Ingest creates a root node reading src and returns its handle. An empty
// tag defaults to the source name.
func (g *Graph) Ingest(src source.Source, tag string) *Pipeline {
	root := &Node{id: g.alloc(), kind: KindIngest, src: src}
	g.roots.Add(1)
	p := &Pipeline{graph: g, leaf: root, tag: tag, consumed: new(atomic.Bool)}
	if src == nil {
		p.err = errors.New(errors.ErrorTypeConfiguration, "ingest requires a source")
		return p
	}
	if p.tag == "" {
		p.tag = src.Name()
	}
	return p
}

// Size returns the number of nodes allocated so far.
func (g *Graph) Size() int { return int(g.next.Load()) }

// Roots returns the number of ingest nodes.
func (g *Graph) Roots() int { return int(g.roots.Load()) }

func (g *Graph) alloc() uint64 { return g.next.Add(1) }
