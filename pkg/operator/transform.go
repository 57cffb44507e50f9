package operator

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/ajitpratap0/phaeton/pkg/record"
)

// Hash replaces a column with the hex SHA-256 digest of salt followed by the
// value. Empty values pass through.
type Hash struct {
	base
	Salt string
}

// NewHash creates a hash operator.
func NewHash(col, salt string) *Hash {
	return &Hash{base: base{kind: KindHash, cols: []string{col}}, Salt: salt}
}

// Check implements Operator.
func (h *Hash) Check() []string {
	if h.cols[0] == "" {
		return []string{"column is required"}
	}
	return nil
}

// Derive implements Operator.
func (h *Hash) Derive(in record.Schema) (record.Schema, error) {
	return setType(in, h.cols[0], record.KindString), nil
}

// Bind implements Operator.
func (h *Hash) Bind(env Env) (Stage, *record.Header, error) {
	if err := checked(h); err != nil {
		return nil, nil, err
	}
	idx, err := resolve(env.Header, h.cols)
	if err != nil {
		return nil, nil, err
	}
	col, salt := idx[0], h.Salt
	return StageFunc(func(r *record.Record) Outcome {
		v := r.Values[col]
		if v.IsNull() || v.Text() == "" {
			return Pass()
		}
		r.Values[col] = record.String(Digest(salt, v.Text()))
		return Pass()
	}), env.Header, nil
}

// Digest returns hex(sha256(salt + value)).
func Digest(salt, value string) string {
	sum := sha256.Sum256([]byte(salt + value))
	return hex.EncodeToString(sum[:])
}

// Map replaces values found in a lookup table. Other values pass through.
type Map struct {
	base
	Mapping map[string]string
}

// NewMap creates a map operator. The mapping is copied.
func NewMap(col string, mapping map[string]string) *Map {
	m := make(map[string]string, len(mapping))
	for k, v := range mapping {
		m[k] = v
	}
	return &Map{base: base{kind: KindMap, cols: []string{col}}, Mapping: m}
}

// Check implements Operator.
func (m *Map) Check() []string {
	var problems []string
	if m.cols[0] == "" {
		problems = append(problems, "column is required")
	}
	if len(m.Mapping) == 0 {
		problems = append(problems, "mapping is empty")
	}
	return problems
}

// Derive implements Operator.
func (m *Map) Derive(in record.Schema) (record.Schema, error) {
	f, ok := in.Lookup(m.cols[0])
	if !ok || f.Type == record.KindString {
		return in, nil
	}
	return setType(in, m.cols[0], record.KindString), nil
}

// Bind implements Operator.
func (m *Map) Bind(env Env) (Stage, *record.Header, error) {
	if err := checked(m); err != nil {
		return nil, nil, err
	}
	idx, err := resolve(env.Header, m.cols)
	if err != nil {
		return nil, nil, err
	}
	col, table := idx[0], m.Mapping
	return StageFunc(func(r *record.Record) Outcome {
		v := r.Values[col]
		if v.IsNull() {
			return Pass()
		}
		if repl, ok := table[v.Text()]; ok {
			r.Values[col] = record.String(repl)
		}
		return Pass()
	}), env.Header, nil
}
