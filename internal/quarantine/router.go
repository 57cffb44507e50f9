// Package quarantine routes rejected rows to an audit sink.
//
// Every rejected row reaches the router exactly once, carrying the stage
// that rejected it and the reason. Rows are persisted with the source
// columns followed by a reason column. Without a sink the router only
// counts.
package quarantine

import (
	"context"
	"sort"
	"sync"

	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/operator"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/ajitpratap0/phaeton/pkg/sink"
)

// Entry is one rejected row.
type Entry struct {
	// Row is the record as read from the source, before any stage ran.
	Row     *record.Record
	StageID string
	Kind    operator.Kind
	Reason  string
}

// Router collects rejected rows for one pipeline. It is not safe for
// concurrent Route calls; counters may be read from any goroutine.
type Router struct {
	w      sink.Writer
	header *record.Header

	mu      sync.Mutex
	opened  bool
	closed  bool
	routed  int64
	written int64
	reasons map[string]int64
}

// NewRouter creates a router writing to w. A nil w counts rejections
// without persisting them, and the source may then carry a column named
// like the reason column. source is the header of the pipeline's source.
func NewRouter(w sink.Writer, source *record.Header) (*Router, error) {
	r := &Router{w: w, reasons: make(map[string]int64)}
	if w == nil {
		return r, nil
	}
	h, err := source.Append(operator.ReasonColumn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, "quarantine header")
	}
	r.header = h
	return r, nil
}

// Header returns the header of persisted rows, or nil without a sink.
func (r *Router) Header() *record.Header { return r.header }

// Persistent reports whether rejections are written anywhere.
func (r *Router) Persistent() bool { return r.w != nil }

// Open opens the underlying sink.
func (r *Router) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.opened {
		return errors.New(errors.ErrorTypeState, "quarantine router already opened")
	}
	r.opened = true
	if r.w == nil {
		return nil
	}
	if err := r.w.Open(ctx, r.header); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to open quarantine sink")
	}
	return nil
}

// Route records entries in order and writes them to the sink.
func (r *Router) Route(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	r.mu.Lock()
	if !r.opened || r.closed {
		r.mu.Unlock()
		return errors.New(errors.ErrorTypeState, "quarantine router is not open")
	}
	r.routed += int64(len(entries))
	for _, e := range entries {
		r.reasons[e.Reason]++
	}
	r.mu.Unlock()

	if r.w == nil {
		return nil
	}

	rows := make([]*record.Record, len(entries))
	for i, e := range entries {
		vals := make([]record.Value, 0, r.header.Len())
		vals = append(vals, e.Row.Values...)
		vals = append(vals, record.String(e.Reason))
		rows[i] = record.New(r.header, vals)
	}
	if err := r.w.Write(ctx, rows); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write quarantined rows")
	}

	r.mu.Lock()
	r.written += int64(len(rows))
	r.mu.Unlock()
	return nil
}

// Close flushes and closes the sink. It is safe to call more than once.
func (r *Router) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed || !r.opened {
		r.closed = true
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if r.w == nil {
		return nil
	}
	if err := r.w.Close(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to close quarantine sink")
	}
	return nil
}

// Routed returns the number of rejected rows seen.
func (r *Router) Routed() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.routed
}

// Written returns the number of rows persisted.
func (r *Router) Written() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Reason is a rejection count for one reason.
type Reason struct {
	Reason string
	Count  int64
}

// Reasons returns counts per reason, most frequent first.
func (r *Router) Reasons() []Reason {
	r.mu.Lock()
	out := make([]Reason, 0, len(r.reasons))
	for k, v := range r.reasons {
		out = append(out, Reason{Reason: k, Count: v})
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}
