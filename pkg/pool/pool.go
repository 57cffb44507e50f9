// Package pool provides typed object pooling for the hot paths of the
// engine. It wraps sync.Pool with type safety, an optional reset hook and
// usage statistics.
//
// Example usage:
//
//	rows := pool.NewSlices[*record.Record](1024)
//	buf := rows.Get()
//	defer rows.Put(buf)
//
//	*buf = append(*buf, r)
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool is a generic object pool. It is safe for concurrent use.
//
// Pointer types are recommended for T. The pool tracks allocations and
// checkouts so callers can tell whether objects are being recycled.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		gets      int64
	}
}

// New creates a pool. reset, when not nil, runs before an object goes back
// into the pool.
func New[T any](new func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return new()
	}
	return p
}

// Get retrieves an object, creating one when the pool is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	atomic.AddInt64(&p.stats.gets, 1)
	return p.pool.Get().(T)
}

// Put returns an object to the pool.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats is a snapshot of pool usage.
type Stats struct {
	// Allocated counts objects created by the pool
	Allocated int64
	// InUse counts objects currently checked out
	InUse int64
	// Gets counts every Get call
	Gets int64
}

// Reused returns the number of Get calls served without allocating.
func (s Stats) Reused() int64 { return s.Gets - s.Allocated }

// Stats returns current pool statistics.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Allocated: atomic.LoadInt64(&p.stats.allocated),
		InUse:     atomic.LoadInt64(&p.stats.inUse),
		Gets:      atomic.LoadInt64(&p.stats.gets),
	}
}
