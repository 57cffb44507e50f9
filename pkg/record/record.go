package record

// Record is one row: an ordered set of values positioned by its Header.
type Record struct {
	Header *Header
	Values []Value
}

// New creates a record. len(values) must equal h.Len().
func New(h *Header, values []Value) *Record {
	return &Record{Header: h, Values: values}
}

// FromStrings creates a record of string values.
func FromStrings(h *Header, fields []string) *Record {
	vals := make([]Value, len(fields))
	for i, f := range fields {
		vals[i] = String(f)
	}
	return &Record{Header: h, Values: vals}
}

// Get returns the value of a named column.
func (r *Record) Get(col string) (Value, bool) {
	i, ok := r.Header.Index(col)
	if !ok {
		return Value{}, false
	}
	return r.Values[i], true
}

// Clone returns a deep copy of the value slice sharing the header.
func (r *Record) Clone() *Record {
	return &Record{Header: r.Header, Values: append([]Value(nil), r.Values...)}
}

// Texts returns the canonical text form of every value.
func (r *Record) Texts() []string {
	out := make([]string, len(r.Values))
	for i, v := range r.Values {
		out[i] = v.Text()
	}
	return out
}

// Map returns the record as a column-name keyed map of plain Go values.
func (r *Record) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.Values))
	for i, v := range r.Values {
		m[r.Header.Name(i)] = v.Interface()
	}
	return m
}

// Chunk is an ordered batch of records with a source sequence number.
type Chunk struct {
	Seq  int64
	Rows []*Record
}
