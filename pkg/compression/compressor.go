// Package compression wraps sources and sinks in streaming compressors.
//
// The algorithm is chosen from the file extension, so "orders.csv.zst" is
// read through a zstd decoder and "clean.jsonl.gz" is written through a gzip
// encoder. Supported algorithms:
//   - Gzip (.gz)
//   - Zstd (.zst)
//   - Snappy (.sz), framed stream format
//   - S2 (.s2)
//   - LZ4 (.lz4), frame format
//
// # Basic Usage
//
//	alg, base := compression.FromPath("clean.csv.gz") // Gzip, "clean.csv"
//	w, err := compression.NewWriter(file, &compression.Config{Algorithm: alg})
//	defer w.Close()
package compression

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression
	S2 Algorithm = "s2"
)

// Level represents compression level, controlling the trade-off between
// speed and ratio.
type Level int

const (
	// Fastest favors speed
	Fastest Level = 1
	// Default balances speed and ratio
	Default Level = 5
	// Better favors ratio
	Better Level = 7
	// Best maximizes ratio
	Best Level = 9
)

// Config configures a compressing writer.
type Config struct {
	Algorithm Algorithm
	Level     Level
}

// DefaultConfig returns an uncompressed configuration with the default level.
func DefaultConfig() *Config {
	return &Config{Algorithm: None, Level: Default}
}

var extensions = map[string]Algorithm{
	".gz":  Gzip,
	".zst": Zstd,
	".sz":  Snappy,
	".s2":  S2,
	".lz4": LZ4,
}

// FromPath returns the algorithm implied by the last extension of p and the
// path with that extension removed. Paths without a known extension return
// None and p unchanged.
func FromPath(p string) (Algorithm, string) {
	ext := strings.ToLower(path.Ext(p))
	if alg, ok := extensions[ext]; ok {
		return alg, p[:len(p)-len(ext)]
	}
	return None, p
}

// NewWriter wraps w in a compressing writer. Close flushes the compressed
// stream but does not close w.
func NewWriter(w io.Writer, config *Config) (io.WriteCloser, error) {
	if config == nil {
		config = DefaultConfig()
	}
	switch config.Algorithm {
	case None, "":
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriterLevel(w, mapGzipLevel(config.Level))
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(mapZstdLevel(config.Level)))
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case S2:
		return s2.NewWriter(w), nil
	case LZ4:
		zw := lz4.NewWriter(w)
		if err := zw.Apply(lz4.CompressionLevelOption(mapLZ4Level(config.Level))); err != nil {
			return nil, fmt.Errorf("failed to configure lz4 writer: %w", err)
		}
		return zw, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", config.Algorithm)
	}
}

// NewReader wraps r in a decompressing reader. Close releases decoder
// resources but does not close r.
func NewReader(r io.Reader, alg Algorithm) (io.ReadCloser, error) {
	switch alg {
	case None, "":
		return io.NopCloser(r), nil
	case Gzip:
		return gzip.NewReader(r)
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case S2:
		return io.NopCloser(s2.NewReader(r)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", alg)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Helper functions to map compression levels

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
