// Package pipeline provides the persistent pipeline graph and its builder.
//
// # Overview
//
// A pipeline is a chain of immutable nodes ending in a leaf. The root node
// names a source; every other node applies one operator. A Pipeline handle
// is a leaf reference plus a tag. Every builder call allocates a new node
// whose parent is the handle's leaf and returns a new handle, so the handle
// it was called on never changes:
//
//	g := pipeline.NewGraph()
//	base := g.Ingest(src, "orders").
//	    Scrub("amount", operator.ScrubCurrency).
//	    Cast("amount", operator.DTypeInt, operator.CastOptions{Clean: true})
//
//	eu := base.Fork("eu").Keep([]string{"region"}, []string{"EU"}, operator.MatchExact).DumpTo("eu.csv")
//	us := base.Fork("us").Dedupe("id").Quarantine(rejects).Dump(clean)
//
// base, eu and us share their first three nodes. Nothing is executed until
// the handles are passed to an engine, which binds a fresh stage per node
// for every pipeline, so stateful stages never share state across handles.
//
// # Terminals
//
// A pipeline is executable only when it ends in a sink: Dump, Peek, or
// Quarantine immediately followed by Dump. Quarantine routes every rejected
// row, with an appended _phaeton_reason column, to its writer.
//
// # Errors
//
// Builder calls never return errors. A problem found while building, such
// as an unresolvable sink URI or a stage appended to a consumed handle, is
// recorded on the returned handle and every handle derived from it, and is
// reported by Err and at execution time.
package pipeline
