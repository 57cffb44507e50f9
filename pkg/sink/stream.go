package sink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/phaeton/pkg/compression"
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"go.uber.org/multierr"
)

const streamBufferSize = 64 * 1024

// Encoder serializes records onto a byte stream.
type Encoder interface {
	Begin(h *record.Header) error
	Encode(rows []*record.Record) error
	// Close flushes buffered output. It does not close the underlying stream.
	Close() error
}

// streamWriter chains target, compression, buffering and encoding.
type streamWriter struct {
	uri     string
	u       *url.URL
	target  TargetFactory
	encoder EncoderFactory
	alg     compression.Algorithm

	dst  io.WriteCloser
	comp io.WriteCloser
	buf  *bufio.Writer
	enc  Encoder
}

// NewStreamWriter encodes records onto any byte destination.
func NewStreamWriter(dst io.WriteCloser, enc EncoderFactory, alg compression.Algorithm) Writer {
	return &streamWriter{
		uri:     "stream",
		target:  func(context.Context, *url.URL) (io.WriteCloser, error) { return dst, nil },
		encoder: enc,
		alg:     alg,
	}
}

func (s *streamWriter) Open(ctx context.Context, h *record.Header) error {
	if s.enc != nil {
		return errors.New(errors.ErrorTypeState, fmt.Sprintf("sink %s already opened", s.uri))
	}
	dst, err := s.target(ctx, s.u)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, fmt.Sprintf("failed to open sink %s", s.uri))
	}
	comp, err := compression.NewWriter(dst, &compression.Config{Algorithm: s.alg, Level: compression.Default})
	if err != nil {
		_ = dst.Close()
		return errors.Wrap(err, errors.ErrorTypeConfiguration, fmt.Sprintf("failed to set up compression for %s", s.uri))
	}
	s.dst, s.comp = dst, comp
	s.buf = bufio.NewWriterSize(comp, streamBufferSize)
	s.enc = s.encoder(s.buf)
	if err := s.enc.Begin(h); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, fmt.Sprintf("failed to write header to %s", s.uri))
	}
	return nil
}

func (s *streamWriter) Write(_ context.Context, rows []*record.Record) error {
	if s.enc == nil {
		return errors.New(errors.ErrorTypeState, fmt.Sprintf("sink %s is not open", s.uri))
	}
	if err := s.enc.Encode(rows); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, fmt.Sprintf("failed to write to %s", s.uri))
	}
	return nil
}

func (s *streamWriter) Close(context.Context) error {
	if s.enc == nil {
		return nil
	}
	err := s.enc.Close()
	err = multierr.Append(err, s.buf.Flush())
	err = multierr.Append(err, s.comp.Close())
	err = multierr.Append(err, s.dst.Close())
	s.enc = nil
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, fmt.Sprintf("failed to close %s", s.uri))
	}
	return nil
}

func openFile(_ context.Context, u *url.URL) (io.WriteCloser, error) {
	p := u.Path
	if u.Scheme == "" && u.Opaque != "" {
		p = u.Opaque
	}
	if dir := filepath.Dir(p); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(p) //nolint:gosec // G304: path is supplied by the caller
}
