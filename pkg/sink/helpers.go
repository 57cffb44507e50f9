package sink

import (
	"path"
	"strings"

	"github.com/ajitpratap0/phaeton/pkg/compression"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/goccy/go-json"
)

// ContentType returns the MIME type for an object path.
func ContentType(p string) string {
	alg, base := compression.FromPath(p)
	if alg != compression.None {
		switch alg {
		case compression.Gzip:
			return "application/gzip"
		case compression.Zstd:
			return "application/zstd"
		default:
			return "application/octet-stream"
		}
	}
	switch strings.ToLower(path.Ext(base)) {
	case ".csv":
		return "text/csv"
	case ".tsv":
		return "text/tab-separated-values"
	case ".jsonl", ".ndjson":
		return "application/x-ndjson"
	case ".avro":
		return "application/avro"
	default:
		return "application/octet-stream"
	}
}

// MarshalRecord encodes a record as a JSON object with keys in column order.
func MarshalRecord(r *record.Record) ([]byte, error) {
	out := []byte{'{'}
	for i, v := range r.Values {
		if i > 0 {
			out = append(out, ',')
		}
		k, err := json.Marshal(r.Header.Name(i))
		if err != nil {
			return nil, err
		}
		out = append(out, k...)
		out = append(out, ':')
		b, err := json.Marshal(v.Interface())
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return append(out, '}'), nil
}

// Kinds returns the column kinds a typed store should declare, fixed from a
// batch the same way the Avro and Parquet encoders fix them.
func Kinds(h *record.Header, rows []*record.Record) []record.Kind {
	return columnKinds(h, rows)
}

// Query returns a query parameter, or def when it is absent.
func Query(values map[string][]string, key, def string) string {
	if v, ok := values[key]; ok && len(v) > 0 && v[0] != "" {
		return v[0]
	}
	return def
}
