// Package sink provides ordered record writers.
//
// A Writer receives a stable header once through Open, then batches of
// records in order through Write. Concrete writers are resolved from URIs by
// a Registry: byte targets (file, s3, gs) combined with an encoder chosen by
// extension (csv, tsv, jsonl, avro, parquet) and an optional compression
// suffix, or record stores that keep typed values (bigquery, kafka, mongodb,
// postgres, sqlite, mysql, snowflake).
package sink

import (
	"context"
	"sync"

	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/record"
)

// Writer is an ordered record writer.
type Writer interface {
	Open(ctx context.Context, h *record.Header) error
	Write(ctx context.Context, rows []*record.Record) error
	Close(ctx context.Context) error
}

// Memory collects records in memory. A positive limit caps how many are kept;
// later writes are accepted and dropped.
type Memory struct {
	limit  int
	mu     sync.Mutex
	header *record.Header
	rows   []*record.Record
	closed bool
}

// NewMemory creates a memory writer. limit <= 0 keeps everything.
func NewMemory(limit int) *Memory {
	return &Memory{limit: limit}
}

// Open implements Writer.
func (m *Memory) Open(_ context.Context, h *record.Header) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.header != nil {
		return errors.New(errors.ErrorTypeState, "memory sink already opened")
	}
	m.header = h
	return nil
}

// Write implements Writer.
func (m *Memory) Write(_ context.Context, rows []*record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.header == nil || m.closed {
		return errors.New(errors.ErrorTypeState, "memory sink is not open")
	}
	for _, r := range rows {
		if m.limit > 0 && len(m.rows) >= m.limit {
			break
		}
		m.rows = append(m.rows, r.Clone())
	}
	return nil
}

// Close implements Writer.
func (m *Memory) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Header returns the header passed to Open.
func (m *Memory) Header() *record.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.header
}

// Rows returns the collected records.
func (m *Memory) Rows() []*record.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*record.Record(nil), m.rows...)
}

// Texts returns the collected records in text form.
func (m *Memory) Texts() [][]string {
	rows := m.Rows()
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = r.Texts()
	}
	return out
}
