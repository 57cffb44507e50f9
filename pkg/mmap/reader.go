// Package mmap reads files through a read-only memory mapping. Sources use
// it for large uncompressed inputs so the kernel pages the file in ahead of
// the CSV decoder instead of copying it through a read buffer.
package mmap

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
)

// Supported reports whether the platform maps files. Open falls back to
// plain reads when it does not.
func Supported() bool { return supported }

// Reader is an io.ReadCloser over a mapped file.
type Reader struct {
	*bytes.Reader

	file *os.File
	data []byte
	once sync.Once
	err  error
}

// Open maps the file at path. Empty files and platforms without mmap yield
// a Reader backed by the open file.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is supplied by the caller
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	size := stat.Size()
	if !supported || size == 0 || int64(int(size)) != size {
		return f, nil
	}

	data, err := mmap(int(f.Fd()), int(size))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}
	// advice only; a failure leaves default paging
	_ = adviseSequential(data)

	return &Reader{Reader: bytes.NewReader(data), file: f, data: data}, nil
}

// Size returns the mapped length.
func (r *Reader) Size() int64 { return int64(len(r.data)) }

// Close unmaps the file and closes it. Further calls return the first result.
func (r *Reader) Close() error {
	r.once.Do(func() {
		r.Reader = bytes.NewReader(nil)
		r.err = munmap(r.data)
		r.data = nil
		if cerr := r.file.Close(); cerr != nil && r.err == nil {
			r.err = cerr
		}
	})
	return r.err
}
