package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ajitpratap0/phaeton/pkg/compression"
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/mmap"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Dialect describes how to decode a delimited text stream.
type Dialect struct {
	// Encoding is a WHATWG encoding label such as "utf-8", "utf-16le" or
	// "windows-1252". Empty means UTF-8. A UTF-8 byte order mark is always
	// dropped.
	Encoding string `yaml:"encoding" json:"encoding"`
	// Delimiter separates fields. Zero means ','.
	Delimiter rune `yaml:"delimiter" json:"delimiter"`
	// Header overrides the column names. When NoHeaderRow is false the
	// first row is still consumed.
	Header []string `yaml:"header" json:"header"`
	// NoHeaderRow reports that the first row is data. Header is then required.
	NoHeaderRow bool `yaml:"no_header_row" json:"no_header_row"`
	// Comment, if not zero, marks lines to skip.
	Comment rune `yaml:"comment" json:"comment"`
	// LazyQuotes tolerates bare quotes inside fields.
	LazyQuotes bool `yaml:"lazy_quotes" json:"lazy_quotes"`
}

// Decoder resolves the dialect encoding into a UTF-8 transformer.
func (d Dialect) Decoder() (transform.Transformer, error) {
	label := strings.ToLower(strings.TrimSpace(d.Encoding))
	if label == "" || label == "utf-8" || label == "utf8" {
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, fmt.Sprintf("unknown encoding %q", d.Encoding))
	}
	return enc.NewDecoder(), nil
}

// CSV is a delimited text source backed by a file or an opener function.
type CSV struct {
	name    string
	dialect Dialect
	open    func() (io.ReadCloser, error)
}

// NewCSV creates a source over a file path. Compressed files are detected by
// extension (.gz, .zst, .sz, .s2, .lz4); plain files are memory-mapped.
func NewCSV(path string, dialect Dialect) *CSV {
	alg, _ := compression.FromPath(path)
	return &CSV{
		name:    path,
		dialect: dialect,
		open: func() (io.ReadCloser, error) {
			if alg == compression.None {
				return mmap.Open(path)
			}
			f, err := os.Open(path) //nolint:gosec // G304: path is supplied by the caller
			if err != nil {
				return nil, err
			}
			r, err := compression.NewReader(f, alg)
			if err != nil {
				_ = f.Close()
				return nil, err
			}
			return &stackedCloser{Reader: r, closers: []io.Closer{r, f}}, nil
		},
	}
}

// NewCSVFunc creates a source over any re-openable byte stream.
func NewCSVFunc(name string, dialect Dialect, open func() (io.ReadCloser, error)) *CSV {
	return &CSV{name: name, dialect: dialect, open: open}
}

// NewCSVString creates a source over an in-memory document.
func NewCSVString(name, doc string, dialect Dialect) *CSV {
	return NewCSVFunc(name, dialect, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(doc)), nil
	})
}

// Name implements Source.
func (c *CSV) Name() string { return c.name }

// Dialect returns the decoding settings.
func (c *CSV) Dialect() Dialect { return c.dialect }

// Header implements Source.
func (c *CSV) Header(ctx context.Context) (*record.Header, error) {
	r, err := c.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Header(), nil
}

// Open implements Source.
func (c *CSV) Open(ctx context.Context) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dec, err := c.dialect.Decoder()
	if err != nil {
		return nil, err
	}
	raw, err := c.open()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, fmt.Sprintf("failed to open source %s", c.name))
	}

	cr := csv.NewReader(transform.NewReader(raw, dec))
	if c.dialect.Delimiter != 0 {
		cr.Comma = c.dialect.Delimiter
	}
	cr.Comment = c.dialect.Comment
	cr.LazyQuotes = c.dialect.LazyQuotes

	names := c.dialect.Header
	if !c.dialect.NoHeaderRow {
		first, err := cr.Read()
		if err != nil {
			_ = raw.Close()
			if err == io.EOF {
				return nil, errors.New(errors.ErrorTypeIO, fmt.Sprintf("source %s has no header row", c.name))
			}
			return nil, errors.Wrap(err, errors.ErrorTypeIO, fmt.Sprintf("failed to read header of %s", c.name))
		}
		if len(names) == 0 {
			names = first
		} else if len(names) != len(first) {
			_ = raw.Close()
			return nil, errors.Newf(errors.ErrorTypeConfiguration,
				"header override has %d names, source %s has %d columns", len(names), c.name, len(first))
		}
	} else if len(names) == 0 {
		_ = raw.Close()
		return nil, errors.Newf(errors.ErrorTypeConfiguration, "source %s has no header row and no header override", c.name)
	}
	cr.FieldsPerRecord = len(names)

	h, err := record.NewHeader(names...)
	if err != nil {
		_ = raw.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, fmt.Sprintf("invalid header in %s", c.name))
	}
	return &csvReader{name: c.name, header: h, csv: cr, closer: raw}, nil
}

type csvReader struct {
	name   string
	header *record.Header
	csv    *csv.Reader
	closer io.Closer
	done   bool
}

func (r *csvReader) Header() *record.Header { return r.header }

func (r *csvReader) Read(ctx context.Context, max int) ([]*record.Record, error) {
	if r.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := make([]*record.Record, 0, max)
	for len(rows) < max {
		fields, err := r.csv.Read()
		if err == io.EOF {
			r.done = true
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIO, fmt.Sprintf("failed to read %s", r.name))
		}
		rows = append(rows, record.FromStrings(r.header, fields))
	}
	if len(rows) == 0 {
		return nil, io.EOF
	}
	return rows, nil
}

func (r *csvReader) Close() error { return r.closer.Close() }

type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
