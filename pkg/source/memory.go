package source

import (
	"context"
	"io"

	"github.com/ajitpratap0/phaeton/pkg/record"
)

// Memory is a source over rows held in memory.
type Memory struct {
	name   string
	header *record.Header
	rows   [][]record.Value
}

// NewMemory creates a source of string rows.
func NewMemory(name string, columns []string, rows [][]string) (*Memory, error) {
	h, err := record.NewHeader(columns...)
	if err != nil {
		return nil, err
	}
	vals := make([][]record.Value, len(rows))
	for i, r := range rows {
		rec := record.FromStrings(h, r)
		vals[i] = rec.Values
	}
	return &Memory{name: name, header: h, rows: vals}, nil
}

// NewMemoryRecords creates a source of typed rows sharing one header.
func NewMemoryRecords(name string, h *record.Header, rows [][]record.Value) *Memory {
	return &Memory{name: name, header: h, rows: rows}
}

// Name implements Source.
func (m *Memory) Name() string { return m.name }

// Header implements Source.
func (m *Memory) Header(context.Context) (*record.Header, error) { return m.header, nil }

// Open implements Source. Records handed out are copies.
func (m *Memory) Open(ctx context.Context) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryReader{src: m}, nil
}

type memoryReader struct {
	src *Memory
	pos int
}

func (r *memoryReader) Header() *record.Header { return r.src.header }

func (r *memoryReader) Read(ctx context.Context, max int) ([]*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.pos >= len(r.src.rows) {
		return nil, io.EOF
	}
	end := min(r.pos+max, len(r.src.rows))
	out := make([]*record.Record, 0, end-r.pos)
	for _, vals := range r.src.rows[r.pos:end] {
		out = append(out, record.New(r.src.header, append([]record.Value(nil), vals...)))
	}
	r.pos = end
	return out, nil
}

func (r *memoryReader) Close() error { return nil }
