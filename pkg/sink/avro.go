package sink

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"
)

// AvroEncoder writes an Avro object container file. Every field is a
// nullable union whose branch type is fixed from the first batch.
type AvroEncoder struct {
	w      io.Writer
	header *record.Header
	names  []string
	kinds  []record.Kind
	ocf    *goavro.OCFWriter
	native []interface{}
}

// NewAvroEncoder creates an Avro OCF encoder.
func NewAvroEncoder(w io.Writer) Encoder {
	return &AvroEncoder{w: w}
}

// Begin implements Encoder.
func (e *AvroEncoder) Begin(h *record.Header) error {
	e.header = h
	e.names = AvroNames(h)
	return nil
}

// Encode implements Encoder.
func (e *AvroEncoder) Encode(rows []*record.Record) error {
	if len(rows) == 0 {
		return nil
	}
	if e.ocf == nil {
		if err := e.start(columnKinds(e.header, rows)); err != nil {
			return err
		}
	}
	e.native = e.native[:0]
	for _, r := range rows {
		datum := make(map[string]interface{}, len(r.Values))
		for i, v := range r.Values {
			name := e.header.Name(i)
			cv, err := coerce(name, e.kinds[i], v)
			if err != nil {
				return err
			}
			if cv.IsNull() {
				datum[e.names[i]] = nil
				continue
			}
			datum[e.names[i]] = goavro.Union(avroType(e.kinds[i]), cv.Interface())
		}
		e.native = append(e.native, datum)
	}
	return e.ocf.Append(e.native)
}

// Close implements Encoder. An encoder that saw no rows still writes the
// container header with string fields.
func (e *AvroEncoder) Close() error {
	if e.ocf == nil && e.header != nil {
		return e.start(columnKinds(e.header, nil))
	}
	return nil
}

func (e *AvroEncoder) start(kinds []record.Kind) error {
	schema, err := AvroSchema(e.header, kinds)
	if err != nil {
		return err
	}
	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return fmt.Errorf("failed to create Avro codec: %w", err)
	}
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               e.w,
		Codec:           codec,
		CompressionName: goavro.CompressionSnappyLabel,
	})
	if err != nil {
		return fmt.Errorf("failed to create Avro writer: %w", err)
	}
	e.kinds, e.ocf = kinds, ocf
	return nil
}

// AvroSchema builds a record schema for a header. Field names are sanitized
// with AvroNames and the original column name is kept in "doc".
func AvroSchema(h *record.Header, kinds []record.Kind) (string, error) {
	type field struct {
		Name    string        `json:"name"`
		Doc     string        `json:"doc"`
		Type    []interface{} `json:"type"`
		Default interface{}   `json:"default"`
	}
	names := AvroNames(h)
	fields := make([]field, h.Len())
	for i := range fields {
		fields[i] = field{
			Name:    names[i],
			Doc:     h.Name(i),
			Type:    []interface{}{"null", avroType(kinds[i])},
			Default: nil,
		}
	}
	b, err := json.Marshal(map[string]interface{}{
		"type":      "record",
		"name":      "Row",
		"namespace": "phaeton",
		"fields":    fields,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// AvroNames maps column names onto valid, unique Avro field names: runes
// outside [A-Za-z0-9_] become '_', a leading digit gains a '_' prefix and
// repeats get a numeric suffix.
func AvroNames(h *record.Header) []string {
	out := make([]string, h.Len())
	seen := make(map[string]int, h.Len())
	for i := range out {
		b := []byte(h.Name(i))
		name := make([]byte, 0, len(b)+1)
		for _, c := range b {
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
				name = append(name, c)
			default:
				name = append(name, '_')
			}
		}
		if len(name) == 0 || (name[0] >= '0' && name[0] <= '9') {
			name = append([]byte{'_'}, name...)
		}
		n := string(name)
		if k := seen[n]; k > 0 {
			seen[n] = k + 1
			n = fmt.Sprintf("%s_%d", n, k)
		} else {
			seen[n] = 1
		}
		out[i] = n
	}
	return out
}

func avroType(k record.Kind) string {
	switch k {
	case record.KindInt:
		return "long"
	case record.KindFloat:
		return "double"
	case record.KindBool:
		return "boolean"
	default:
		return "string"
	}
}
