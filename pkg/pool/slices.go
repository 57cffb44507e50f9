package pool

// maxRetained caps the capacity of slices kept for reuse so one oversized
// chunk does not pin its memory.
const maxRetained = 1 << 16

// Slices pools slice buffers of T. Buffers come back empty.
type Slices[T any] struct {
	p *Pool[*[]T]
}

// NewSlices creates a slice pool whose new buffers have the given capacity.
func NewSlices[T any](capacity int) *Slices[T] {
	return &Slices[T]{p: New(
		func() *[]T {
			s := make([]T, 0, capacity)
			return &s
		},
		func(s *[]T) {
			var zero T
			for i := range *s {
				(*s)[i] = zero
			}
			*s = (*s)[:0]
		},
	)}
}

// Get returns an empty buffer.
func (s *Slices[T]) Get() *[]T { return s.p.Get() }

// Put recycles a buffer. Oversized buffers are dropped.
func (s *Slices[T]) Put(buf *[]T) {
	if buf == nil {
		return
	}
	if cap(*buf) > maxRetained {
		s.p.Put(&[]T{})
		return
	}
	s.p.Put(buf)
}

// Stats returns usage statistics of the underlying pool.
func (s *Slices[T]) Stats() Stats { return s.p.Stats() }
