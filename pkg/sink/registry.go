package sink

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/ajitpratap0/phaeton/pkg/compression"
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/logger"
	"go.uber.org/zap"
)

// TargetFactory opens a byte destination for a URI.
type TargetFactory func(ctx context.Context, u *url.URL) (io.WriteCloser, error)

// EncoderFactory creates a record encoder over a byte stream.
type EncoderFactory func(w io.Writer) Encoder

// StoreFactory creates a record store writer for a URI. Connections are
// made in Writer.Open.
type StoreFactory func(u *url.URL) (Writer, error)

// encoderSpec describes a registered encoder.
type encoderSpec struct {
	factory EncoderFactory
	// framed encoders manage their own compression and reject a suffix
	framed bool
}

// Registry resolves sink URIs.
type Registry struct {
	targets  map[string]TargetFactory
	encoders map[string]encoderSpec
	stores   map[string]StoreFactory
	mu       sync.RWMutex
	logger   *zap.Logger
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a registry with the file target and the built-in
// encoders.
func NewRegistry() *Registry {
	r := &Registry{
		targets:  make(map[string]TargetFactory),
		encoders: make(map[string]encoderSpec),
		stores:   make(map[string]StoreFactory),
		logger:   logger.Get().With(zap.String("component", "sink_registry")),
	}
	r.targets["file"] = openFile
	r.encoders[".csv"] = encoderSpec{factory: func(w io.Writer) Encoder { return NewCSVEncoder(w, ',') }}
	r.encoders[".tsv"] = encoderSpec{factory: func(w io.Writer) Encoder { return NewCSVEncoder(w, '\t') }}
	r.encoders[".jsonl"] = encoderSpec{factory: NewJSONLEncoder}
	r.encoders[".ndjson"] = encoderSpec{factory: NewJSONLEncoder}
	r.encoders[".avro"] = encoderSpec{factory: NewAvroEncoder, framed: true}
	r.encoders[".parquet"] = encoderSpec{factory: NewParquetEncoder, framed: true}
	return r
}

// Default returns the process-wide registry.
func Default() *Registry { return globalRegistry }

// RegisterTarget registers a byte target for a URI scheme.
func (r *Registry) RegisterTarget(scheme string, factory TargetFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.targets[scheme]; exists {
		return errors.New(errors.ErrorTypeConfiguration, fmt.Sprintf("sink target %s already registered", scheme))
	}
	if _, exists := r.stores[scheme]; exists {
		return errors.New(errors.ErrorTypeConfiguration, fmt.Sprintf("scheme %s already registered as a record store", scheme))
	}
	r.targets[scheme] = factory
	r.logger.Debug("sink target registered", zap.String("scheme", scheme))
	return nil
}

// RegisterStore registers a record store for a URI scheme.
func (r *Registry) RegisterStore(scheme string, factory StoreFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stores[scheme]; exists {
		return errors.New(errors.ErrorTypeConfiguration, fmt.Sprintf("record store %s already registered", scheme))
	}
	if _, exists := r.targets[scheme]; exists {
		return errors.New(errors.ErrorTypeConfiguration, fmt.Sprintf("scheme %s already registered as a target", scheme))
	}
	r.stores[scheme] = factory
	r.logger.Debug("record store registered", zap.String("scheme", scheme))
	return nil
}

// RegisterEncoder registers an encoder for a file extension such as ".xml".
func (r *Registry) RegisterEncoder(ext string, factory EncoderFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ext = strings.ToLower(ext)
	if _, exists := r.encoders[ext]; exists {
		return errors.New(errors.ErrorTypeConfiguration, fmt.Sprintf("encoder %s already registered", ext))
	}
	r.encoders[ext] = encoderSpec{factory: factory}
	return nil
}

// Schemes lists registered target and store schemes.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.targets)+len(r.stores))
	for s := range r.targets {
		out = append(out, s)
	}
	for s := range r.stores {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Open resolves a URI into a Writer. Nothing is connected or created until
// the Writer is opened. Bare paths use the file target.
func (r *Registry) Open(uri string) (Writer, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, fmt.Sprintf("invalid sink uri %q", uri))
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "file"
	}

	r.mu.RLock()
	store, isStore := r.stores[scheme]
	target, isTarget := r.targets[scheme]
	r.mu.RUnlock()

	if isStore {
		w, err := store(u)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, fmt.Sprintf("invalid %s sink", scheme))
		}
		return w, nil
	}
	if !isTarget {
		return nil, errors.New(errors.ErrorTypeConfiguration, fmt.Sprintf("no sink registered for scheme %q", scheme))
	}

	alg, base := compression.FromPath(u.Path)
	ext := strings.ToLower(path.Ext(base))
	r.mu.RLock()
	spec, ok := r.encoders[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrorTypeConfiguration, fmt.Sprintf("no encoder for extension %q in %s", ext, uri))
	}
	if spec.framed && alg != compression.None {
		return nil, errors.New(errors.ErrorTypeConfiguration, fmt.Sprintf("%s output cannot take a compression suffix", ext))
	}
	return &streamWriter{uri: uri, u: u, target: target, encoder: spec.factory, alg: alg}, nil
}

// Open resolves a URI with the default registry.
func Open(uri string) (Writer, error) {
	return globalRegistry.Open(uri)
}

// RegisterTarget registers a byte target with the default registry.
func RegisterTarget(scheme string, factory TargetFactory) error {
	return globalRegistry.RegisterTarget(scheme, factory)
}

// RegisterStore registers a record store with the default registry.
func RegisterStore(scheme string, factory StoreFactory) error {
	return globalRegistry.RegisterStore(scheme, factory)
}
