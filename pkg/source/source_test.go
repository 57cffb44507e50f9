package source

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ajitpratap0/phaeton/pkg/compression"
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, src Source, batch int) (*record.Header, [][]string) {
	t.Helper()
	ctx := context.Background()
	r, err := src.Open(ctx)
	require.NoError(t, err)
	defer r.Close()

	var rows [][]string
	for {
		recs, err := r.Read(ctx, batch)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.LessOrEqual(t, len(recs), batch)
		for _, rec := range recs {
			rows = append(rows, rec.Texts())
		}
	}
	return r.Header(), rows
}

func TestCSVReadsInBatches(t *testing.T) {
	src := NewCSVString("inline", "id,name\n1,Ada\n2,Grace\n3,Linus\n", Dialect{})
	h, rows := readAll(t, src, 2)

	assert.Equal(t, []string{"id", "name"}, h.Names())
	assert.Equal(t, [][]string{{"1", "Ada"}, {"2", "Grace"}, {"3", "Linus"}}, rows)
}

func TestCSVDialect(t *testing.T) {
	t.Run("delimiter and bom", func(t *testing.T) {
		src := NewCSVString("semi", "\xEF\xBB\xBFa;b\n1;2\n", Dialect{Delimiter: ';'})
		h, rows := readAll(t, src, 10)
		assert.Equal(t, []string{"a", "b"}, h.Names())
		assert.Equal(t, [][]string{{"1", "2"}}, rows)
	})

	t.Run("windows-1252", func(t *testing.T) {
		src := NewCSVString("legacy", "name\ncaf\xe9\n", Dialect{Encoding: "windows-1252"})
		_, rows := readAll(t, src, 10)
		assert.Equal(t, [][]string{{"café"}}, rows)
	})

	t.Run("header override", func(t *testing.T) {
		src := NewCSVString("override", "A,B\n1,2\n", Dialect{Header: []string{"x", "y"}})
		h, rows := readAll(t, src, 10)
		assert.Equal(t, []string{"x", "y"}, h.Names())
		assert.Equal(t, [][]string{{"1", "2"}}, rows)
	})

	t.Run("no header row", func(t *testing.T) {
		src := NewCSVString("headless", "1,2\n", Dialect{Header: []string{"x", "y"}, NoHeaderRow: true})
		_, rows := readAll(t, src, 10)
		assert.Equal(t, [][]string{{"1", "2"}}, rows)
	})

	t.Run("unknown encoding", func(t *testing.T) {
		_, err := NewCSVString("bad", "a\n", Dialect{Encoding: "klingon"}).Open(context.Background())
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
	})
}

func TestCSVRaggedRowIsAnError(t *testing.T) {
	src := NewCSVString("ragged", "a,b\n1,2\n3\n", Dialect{})
	r, err := src.Open(context.Background())
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Read(context.Background(), 10)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}

func TestCSVCompressedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv.gz")

	var buf bytes.Buffer
	w, err := compression.NewWriter(&buf, &compression.Config{Algorithm: compression.Gzip})
	require.NoError(t, err)
	_, err = w.Write([]byte("id\n1\n2\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	h, err := NewCSV(path, Dialect{}).Header(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, h.Names())

	_, rows := readAll(t, NewCSV(path, Dialect{}), 1)
	assert.Equal(t, [][]string{{"1"}, {"2"}}, rows)
}

func TestMemorySource(t *testing.T) {
	src, err := NewMemory("mem", []string{"a"}, [][]string{{"1"}, {"2"}, {"3"}})
	require.NoError(t, err)

	_, rows := readAll(t, src, 2)
	assert.Equal(t, [][]string{{"1"}, {"2"}, {"3"}}, rows)

	// Every Open is an independent pass.
	_, again := readAll(t, src, 5)
	assert.Equal(t, rows, again)
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name      string
		input     []byte
		encoding  string
		delimiter rune
		headers   []string
	}{
		{"utf8 comma", []byte("id,name,city\n1,a,b\n"), "utf-8", ',', []string{"id", "name", "city"}},
		{"bom semicolon", []byte("\xEF\xBB\xBFid;name\n1;a\n"), "utf-8", ';', []string{"id", "name"}},
		{"cp1252 tab", []byte("id\tnom\x80\n1\t2\n"), "windows-1252", '\t', []string{"id", "nom€"}},
		{"pipe", []byte(" a | b | c \n"), "utf-8", '|', []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := Probe(bytes.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.encoding, meta.Encoding)
			assert.Equal(t, tt.delimiter, meta.Delimiter)
			assert.Equal(t, tt.headers, meta.Headers)
		})
	}
}

func TestProbeConfidence(t *testing.T) {
	meta, err := Probe(bytes.NewReader([]byte("a\n\x80\n")))
	require.NoError(t, err)
	assert.Equal(t, 0.7, meta.Confidence)

	meta, err = Probe(bytes.NewReader([]byte("a\n\xe9\n")))
	require.NoError(t, err)
	assert.Equal(t, 0.6, meta.Confidence)
}
