package sink

import (
	"io"

	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/goccy/go-json"
)

// JSONLEncoder writes one JSON object per line with keys in column order.
type JSONLEncoder struct {
	w    io.Writer
	keys [][]byte
	line []byte
}

// NewJSONLEncoder creates a JSON lines encoder.
func NewJSONLEncoder(w io.Writer) Encoder {
	return &JSONLEncoder{w: w}
}

// Begin implements Encoder.
func (e *JSONLEncoder) Begin(h *record.Header) error {
	e.keys = make([][]byte, h.Len())
	for i := range e.keys {
		k, err := json.Marshal(h.Name(i))
		if err != nil {
			return err
		}
		e.keys[i] = k
	}
	return nil
}

// Encode implements Encoder.
func (e *JSONLEncoder) Encode(rows []*record.Record) error {
	for _, r := range rows {
		e.line = append(e.line[:0], '{')
		for i, v := range r.Values {
			if i > 0 {
				e.line = append(e.line, ',')
			}
			e.line = append(e.line, e.keys[i]...)
			e.line = append(e.line, ':')
			b, err := json.Marshal(v.Interface())
			if err != nil {
				return err
			}
			e.line = append(e.line, b...)
		}
		e.line = append(e.line, '}', '\n')
		if _, err := e.w.Write(e.line); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Encoder.
func (e *JSONLEncoder) Close() error { return nil }
