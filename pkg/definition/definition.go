// Package definition reads pipeline definition files.
//
// A definition lists pipelines, each with a source, an optional decoding
// dialect, a list of steps and its sinks. A pipeline may start from another
// one with "from", which forks the other pipeline after its last step.
// Pipelines without a sink only serve as such bases.
//
//	pipelines:
//	  - tag: base
//	    source: customers.csv
//	    dialect: {encoding: windows-1252, delimiter: ";"}
//	    steps:
//	      - {op: headers, style: snake}
//	      - {op: scrub, column: email, mode: trim}
//	  - tag: billing
//	    from: base
//	    steps:
//	      - {op: cast, column: balance, dtype: float, clean: true}
//	    quarantine: billing_rejects.csv
//	    dump: billing.parquet
//
// Files ending in .json are read as JSON, everything else as YAML. ${VAR}
// references are substituted from the environment first.
package definition

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ajitpratap0/phaeton/pkg/config"
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/pipeline"
	"github.com/ajitpratap0/phaeton/pkg/source"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a definition document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Document is a parsed definition file.
type Document struct {
	Pipelines []Pipeline `yaml:"pipelines" json:"pipelines"`
}

// Pipeline declares one pipeline.
type Pipeline struct {
	Tag string `yaml:"tag" json:"tag"`
	// Source is a file path. Exactly one of Source and From is set.
	Source  string   `yaml:"source,omitempty" json:"source,omitempty"`
	From    string   `yaml:"from,omitempty" json:"from,omitempty"`
	Dialect *Dialect `yaml:"dialect,omitempty" json:"dialect,omitempty"`
	Limit   int      `yaml:"limit,omitempty" json:"limit,omitempty"`
	Steps   []Step   `yaml:"steps,omitempty" json:"steps,omitempty"`

	Quarantine string `yaml:"quarantine,omitempty" json:"quarantine,omitempty"`
	Dump       string `yaml:"dump,omitempty" json:"dump,omitempty"`
	Peek       int    `yaml:"peek,omitempty" json:"peek,omitempty"`
}

// Dialect is the textual form of source.Dialect.
type Dialect struct {
	Encoding    string   `yaml:"encoding,omitempty" json:"encoding,omitempty"`
	Delimiter   string   `yaml:"delimiter,omitempty" json:"delimiter,omitempty"`
	Header      []string `yaml:"header,omitempty" json:"header,omitempty"`
	NoHeaderRow bool     `yaml:"no_header_row,omitempty" json:"no_header_row,omitempty"`
	Comment     string   `yaml:"comment,omitempty" json:"comment,omitempty"`
	LazyQuotes  bool     `yaml:"lazy_quotes,omitempty" json:"lazy_quotes,omitempty"`
}

// Step is one operator with its parameters, keyed by "op".
type Step map[string]interface{}

// Op returns the operator name.
func (s Step) Op() string {
	op, _ := s["op"].(string)
	return strings.ToLower(strings.TrimSpace(op))
}

// Load reads a definition file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the caller
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read definition")
	}
	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}
	return Parse(data, format)
}

// Parse decodes a definition document.
func Parse(data []byte, format Format) (*Document, error) {
	content := []byte(config.SubstituteEnv(string(data)))
	var doc Document
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(content, &doc)
	default:
		err = yaml.Unmarshal(content, &doc)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, "failed to parse definition")
	}
	return &doc, nil
}

// source converts the textual dialect.
func (d *Dialect) source() (source.Dialect, error) {
	if d == nil {
		return source.Dialect{}, nil
	}
	out := source.Dialect{
		Encoding:    d.Encoding,
		Header:      d.Header,
		NoHeaderRow: d.NoHeaderRow,
		LazyQuotes:  d.LazyQuotes,
	}
	var err error
	if out.Delimiter, err = single("delimiter", d.Delimiter); err != nil {
		return out, err
	}
	if out.Comment, err = single("comment", d.Comment); err != nil {
		return out, err
	}
	return out, nil
}

func single(field, s string) (rune, error) {
	switch {
	case s == "":
		return 0, nil
	case s == `\t` || s == "tab":
		return '\t', nil
	case utf8.RuneCountInString(s) == 1:
		r, _ := utf8.DecodeRuneInString(s)
		return r, nil
	}
	return 0, errors.Newf(errors.ErrorTypeConfiguration, "%s must be a single character, got %q", field, s)
}

// Ingester starts pipelines. *phaeton.Engine satisfies it.
type Ingester interface {
	Ingest(src source.Source, tag string) (*pipeline.Pipeline, error)
}

// Build turns the document into pipelines ready for execution, in document
// order. Pipelines without a sink are built but not returned.
func (d *Document) Build(ing Ingester) ([]*pipeline.Pipeline, error) {
	open := make(map[string]*pipeline.Pipeline, len(d.Pipelines))
	var out []*pipeline.Pipeline
	var ds errors.Diagnostics

	for i, spec := range d.Pipelines {
		tag := spec.Tag
		if tag == "" {
			tag = spec.Source
		}
		p, err := spec.start(ing, tag, open)
		if err != nil {
			ds.Add(errors.Diagnostic{Type: errors.ErrorTypeConfiguration, Pipeline: tag, Message: err.Error()})
			continue
		}
		if _, dup := open[tag]; dup {
			ds.Add(errors.Diagnostic{Type: errors.ErrorTypeConfiguration, Pipeline: tag,
				Message: "duplicate pipeline tag at position " + strconv.Itoa(i+1)})
			continue
		}

		if spec.Limit != 0 {
			p = p.Limit(spec.Limit)
		}
		for j, step := range spec.Steps {
			next, err := apply(p, step)
			if err != nil {
				ds.Add(errors.Diagnostic{Type: errors.ErrorTypeConfiguration, Pipeline: tag,
					Stage: step.Op() + "#" + strconv.Itoa(j+1), Message: err.Error()})
				continue
			}
			p = next
		}
		open[tag] = p

		if sunk := spec.sinks(p); sunk != nil {
			out = append(out, sunk)
		}
	}

	if err := ds.Err(errors.ErrorTypeConfiguration); err != nil {
		return nil, err
	}
	return out, nil
}

func (spec Pipeline) start(ing Ingester, tag string, open map[string]*pipeline.Pipeline) (*pipeline.Pipeline, error) {
	switch {
	case spec.Source != "" && spec.From != "":
		return nil, errors.New(errors.ErrorTypeConfiguration, "source and from are mutually exclusive")
	case spec.From != "":
		base, ok := open[spec.From]
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeConfiguration, "from refers to unknown pipeline %q", spec.From)
		}
		return base.Fork(tag), nil
	case spec.Source != "":
		dialect, err := spec.Dialect.source()
		if err != nil {
			return nil, err
		}
		return ing.Ingest(source.NewCSV(spec.Source, dialect), tag)
	}
	return nil, errors.New(errors.ErrorTypeConfiguration, "pipeline needs a source or from")
}

// sinks appends the declared terminal stages, or returns nil when there are
// none.
func (spec Pipeline) sinks(p *pipeline.Pipeline) *pipeline.Pipeline {
	if spec.Dump == "" && spec.Peek == 0 && spec.Quarantine == "" {
		return nil
	}
	if spec.Quarantine != "" {
		p = p.QuarantineTo(spec.Quarantine)
	}
	if spec.Dump != "" {
		p = p.DumpTo(spec.Dump)
	}
	if spec.Peek != 0 {
		p = p.Peek(spec.Peek)
	}
	return p
}
