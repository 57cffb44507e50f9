package record

import "fmt"

// Header is an immutable ordered column set. Records flowing through one
// pipeline stage share a single *Header.
type Header struct {
	names []string
	index map[string]int
}

// NewHeader builds a header from column names. Duplicate names are rejected.
func NewHeader(names ...string) (*Header, error) {
	h := &Header{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
	}
	for i, n := range h.names {
		if _, dup := h.index[n]; dup {
			return nil, fmt.Errorf("duplicate column %q", n)
		}
		h.index[n] = i
	}
	return h, nil
}

// MustHeader is NewHeader that panics on duplicates. Intended for tests and literals.
func MustHeader(names ...string) *Header {
	h, err := NewHeader(names...)
	if err != nil {
		panic(err)
	}
	return h
}

// Len returns the number of columns.
func (h *Header) Len() int { return len(h.names) }

// Names returns a copy of the column names.
func (h *Header) Names() []string { return append([]string(nil), h.names...) }

// Name returns the column name at position i.
func (h *Header) Name(i int) string { return h.names[i] }

// Index returns the position of a column.
func (h *Header) Index(name string) (int, bool) {
	i, ok := h.index[name]
	return i, ok
}

// Has reports whether the column exists.
func (h *Header) Has(name string) bool {
	_, ok := h.index[name]
	return ok
}

// Rename returns a new header with every name passed through fn. Values are
// untouched, so positions stay stable.
func (h *Header) Rename(fn func(string) string) (*Header, error) {
	out := make([]string, len(h.names))
	for i, n := range h.names {
		out[i] = fn(n)
	}
	return NewHeader(out...)
}

// Append returns a new header with extra columns at the end.
func (h *Header) Append(names ...string) (*Header, error) {
	return NewHeader(append(h.Names(), names...)...)
}

// Equal reports whether two headers have the same names in the same order.
func (h *Header) Equal(o *Header) bool {
	if h == o {
		return true
	}
	if h == nil || o == nil || len(h.names) != len(o.names) {
		return false
	}
	for i := range h.names {
		if h.names[i] != o.names[i] {
			return false
		}
	}
	return true
}
