package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewEngineConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultBatchSize, cfg.GetBatchSize())
	assert.GreaterOrEqual(t, cfg.GetWorkers(), 1)
	assert.Equal(t, 2*cfg.GetWorkers(), cfg.GetMaxInflightChunks())

	cfg.Workers = 3
	assert.Equal(t, 3, cfg.GetWorkers())
	assert.Equal(t, 6, cfg.GetMaxInflightChunks())
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := NewEngineConfig()
	cfg.BatchSize = -1
	cfg.Workers = -2

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
	assert.Len(t, errors.DiagnosticsOf(err), 2)
}

func TestSubstituteEnv(t *testing.T) {
	t.Setenv("PHAETON_TEST_LEVEL", "debug")
	assert.Equal(t, "level: debug", SubstituteEnv("level: ${PHAETON_TEST_LEVEL}"))
	assert.Equal(t, "a: x, b: ", SubstituteEnv("a: ${PHAETON_TEST_UNSET:-x}, b: ${PHAETON_TEST_UNSET}"))
	assert.Equal(t, "open ${brace", SubstituteEnv("open ${brace"))
}

func TestLoadEngine(t *testing.T) {
	t.Setenv("PHAETON_TEST_WORKERS", "4")
	path := filepath.Join(t.TempDir(), "phaeton.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size: 500\nworkers: ${PHAETON_TEST_WORKERS}\nstrict: true\n"), 0o600))

	cfg, err := LoadEngine(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.Strict)
	assert.Equal(t, "phaeton", cfg.Tracing.ServiceName)

	out := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, Save(out, cfg))
	again, err := LoadEngine(out)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}
