package sink

import (
	"encoding/csv"
	"io"

	"github.com/ajitpratap0/phaeton/pkg/record"
)

// CSVEncoder writes a header row and one text row per record. Nulls become
// empty fields.
type CSVEncoder struct {
	w *csv.Writer
}

// NewCSVEncoder creates a delimited text encoder.
func NewCSVEncoder(w io.Writer, comma rune) Encoder {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	return &CSVEncoder{w: cw}
}

// Begin implements Encoder.
func (e *CSVEncoder) Begin(h *record.Header) error {
	return e.w.Write(h.Names())
}

// Encode implements Encoder.
func (e *CSVEncoder) Encode(rows []*record.Record) error {
	for _, r := range rows {
		if err := e.w.Write(r.Texts()); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Encoder.
func (e *CSVEncoder) Close() error {
	e.w.Flush()
	return e.w.Error()
}
