package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReadsWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	content := "a,b\n1,2\n3,4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))

	m, ok := r.(*Reader)
	if !ok {
		require.NoError(t, r.Close())
		return
	}
	assert.True(t, Supported())
	assert.Equal(t, int64(len(content)), m.Size())
	require.NoError(t, m.Close())
	assert.NoError(t, m.Close())
}

func TestOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
