package operator

import (
	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/cespare/xxhash/v2"
)

// Dedupe quarantines rows whose key columns repeat an earlier row. With no
// columns the whole row is the key.
type Dedupe struct {
	base
}

// NewDedupe creates a dedupe operator.
func NewDedupe(cols ...string) *Dedupe {
	return &Dedupe{base: base{kind: KindDedupe, cols: append([]string(nil), cols...)}}
}

// Stateful implements Operator.
func (d *Dedupe) Stateful() bool { return true }

// Check implements Operator.
func (d *Dedupe) Check() []string {
	for _, c := range d.cols {
		if c == "" {
			return []string{"column names must not be empty"}
		}
	}
	return nil
}

// Bind implements Operator. Each call starts with an empty seen set.
func (d *Dedupe) Bind(env Env) (Stage, *record.Header, error) {
	if err := checked(d); err != nil {
		return nil, nil, err
	}
	var idx []int
	if len(d.cols) == 0 {
		idx = all(env.Header)
	} else {
		var err error
		if idx, err = resolve(env.Header, d.cols); err != nil {
			return nil, nil, err
		}
	}
	return &dedupeStage{idx: idx, seen: make(map[uint64][][]record.Value)}, env.Header, nil
}

type dedupeStage struct {
	idx  []int
	seen map[uint64][][]record.Value
	buf  []byte
}

func (s *dedupeStage) Apply(r *record.Record) Outcome {
	key := make([]record.Value, len(s.idx))
	s.buf = s.buf[:0]
	for i, col := range s.idx {
		v := r.Values[col]
		key[i] = v
		s.buf = append(s.buf, byte(v.Kind()))
		s.buf = append(s.buf, v.Text()...)
		s.buf = append(s.buf, 0x1f)
	}
	h := xxhash.Sum64(s.buf)
	for _, prev := range s.seen[h] {
		if sameKey(prev, key) {
			return Rejected(ReasonDuplicate)
		}
	}
	s.seen[h] = append(s.seen[h], key)
	return Pass()
}

func sameKey(a, b []record.Value) bool {
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
