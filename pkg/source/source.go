// Package source reads delimited text into ordered record batches.
//
// Sources never guess their input format. Encoding, delimiter and header
// names are supplied through a Dialect, typically filled from the result of
// Probe by the caller.
package source

import (
	"context"

	"github.com/ajitpratap0/phaeton/pkg/record"
)

// Source is a re-readable ordered record stream. Every Open starts a new,
// independent pass over the data.
type Source interface {
	Name() string
	// Header returns the column names without reading any data row.
	Header(ctx context.Context) (*record.Header, error)
	Open(ctx context.Context) (Reader, error)
}

// Reader is one pass over a Source.
type Reader interface {
	Header() *record.Header
	// Read returns up to max records in source order. It returns io.EOF
	// once the stream is exhausted and no records remain.
	Read(ctx context.Context, max int) ([]*record.Record, error)
	Close() error
}
