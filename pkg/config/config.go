// Package config holds the engine configuration.
//
// The configuration is organized into sections:
//   - Execution: batch size, worker count, strict validation, in-flight chunk bound
//   - Logging: level, encoding, optional rotated log file
//   - Metrics: Prometheus endpoint
//   - Tracing: OpenTelemetry span export
//
// Example usage:
//
//	cfg := config.NewEngineConfig()
//	cfg.Workers = 4
//	cfg.Strict = true
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"runtime"

	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/logger"
	"github.com/shirou/gopsutil/v3/cpu"
)

// DefaultBatchSize is the number of rows per chunk when none is configured.
const DefaultBatchSize = 10000

// EngineConfig is the configuration of one Engine.
type EngineConfig struct {
	// BatchSize is the number of rows per chunk
	BatchSize int `yaml:"batch_size" json:"batch_size" mapstructure:"batch_size"`
	// Workers is the size of the shared worker pool (0 = all logical CPUs)
	Workers int `yaml:"workers" json:"workers" mapstructure:"workers"`
	// Strict validates every pipeline against its source header before any row is read
	Strict bool `yaml:"strict" json:"strict" mapstructure:"strict"`
	// MaxInflightChunks bounds the chunks buffered per pipeline (0 = 2 x workers)
	MaxInflightChunks int `yaml:"max_inflight_chunks" json:"max_inflight_chunks" mapstructure:"max_inflight_chunks"`

	Logging logger.Config `yaml:"logging" json:"logging" mapstructure:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics" mapstructure:"metrics"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing" mapstructure:"tracing"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Address string `yaml:"address" json:"address" mapstructure:"address"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	SampleRate  float64 `yaml:"sample_rate" json:"sample_rate" mapstructure:"sample_rate"`
	ServiceName string  `yaml:"service_name" json:"service_name" mapstructure:"service_name"`
}

// NewEngineConfig returns a configuration with defaults filled in.
func NewEngineConfig() *EngineConfig {
	return &EngineConfig{
		BatchSize: DefaultBatchSize,
		Logging:   logger.DefaultConfig(),
		Metrics: MetricsConfig{
			Address: ":9090",
		},
		Tracing: TracingConfig{
			SampleRate:  1.0,
			ServiceName: "phaeton",
		},
	}
}

// Validate checks ranges. Zero values that have defaults are accepted.
func (c *EngineConfig) Validate() error {
	var ds errors.Diagnostics
	if c.BatchSize < 0 {
		ds.Addf("", "", "", "batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Workers < 0 {
		ds.Addf("", "", "", "workers cannot be negative, got %d", c.Workers)
	}
	if c.MaxInflightChunks < 0 {
		ds.Addf("", "", "", "max_inflight_chunks cannot be negative, got %d", c.MaxInflightChunks)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		ds.Addf("", "", "", "tracing.sample_rate must be within [0, 1], got %g", c.Tracing.SampleRate)
	}
	return ds.Err(errors.ErrorTypeConfiguration)
}

// GetBatchSize returns the chunk size, applying the default for zero.
func (c *EngineConfig) GetBatchSize() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}

// GetWorkers returns the number of workers, ensuring it's at least 1
func (c *EngineConfig) GetWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// GetMaxInflightChunks returns the per-pipeline chunk bound.
func (c *EngineConfig) GetMaxInflightChunks() int {
	if c.MaxInflightChunks > 0 {
		return c.MaxInflightChunks
	}
	return 2 * c.GetWorkers()
}
