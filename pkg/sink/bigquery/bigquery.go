// Package bigquery streams records into an existing BigQuery table through
// the streaming insert API. URIs have the form
// bigquery://project/dataset/table.
package bigquery

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/ajitpratap0/phaeton/pkg/sink"
	"github.com/ajitpratap0/phaeton/pkg/sink/gcloud"
	"google.golang.org/api/option"
)

func init() {
	if err := sink.RegisterStore("bigquery", New); err != nil {
		panic(err)
	}
}

// Table addresses a BigQuery table.
type Table struct {
	Project string
	Dataset string
	Table   string
}

// ParseTable reads project, dataset and table from a bigquery URI.
func ParseTable(u *url.URL) (Table, error) {
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if u.Host == "" || len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Table{}, fmt.Errorf("bigquery uri %q must be bigquery://project/dataset/table", u.String())
	}
	return Table{Project: u.Host, Dataset: parts[0], Table: parts[1]}, nil
}

// Writer inserts records into a table.
type Writer struct {
	table    Table
	opts     []option.ClientOption
	client   *bigquery.Client
	inserter *bigquery.Inserter
	header   *record.Header
}

// New creates a writer from a URI.
func New(u *url.URL) (sink.Writer, error) {
	t, err := ParseTable(u)
	if err != nil {
		return nil, err
	}
	return &Writer{table: t, opts: gcloud.ClientOptions(u.Query())}, nil
}

// Open implements sink.Writer.
func (w *Writer) Open(ctx context.Context, h *record.Header) error {
	client, err := bigquery.NewClient(ctx, w.table.Project, w.opts...)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to create BigQuery client")
	}
	w.client = client
	w.inserter = client.Dataset(w.table.Dataset).Table(w.table.Table).Inserter()
	w.header = h
	return nil
}

// Write implements sink.Writer.
func (w *Writer) Write(ctx context.Context, rows []*record.Record) error {
	if len(rows) == 0 {
		return nil
	}
	savers := make([]bigquery.ValueSaver, len(rows))
	for i, r := range rows {
		savers[i] = Row{Record: r}
	}
	if err := w.inserter.Put(ctx, savers); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, fmt.Sprintf("failed to insert %d rows into %s.%s", len(rows), w.table.Dataset, w.table.Table))
	}
	return nil
}

// Close implements sink.Writer.
func (w *Writer) Close(context.Context) error {
	if w.client == nil {
		return nil
	}
	return w.client.Close()
}

// Row adapts a record to bigquery.ValueSaver.
type Row struct {
	Record *record.Record
}

// Save implements bigquery.ValueSaver. Rows carry no insert id.
func (r Row) Save() (map[string]bigquery.Value, string, error) {
	out := make(map[string]bigquery.Value, len(r.Record.Values))
	for i, v := range r.Record.Values {
		out[r.Record.Header.Name(i)] = v.Interface()
	}
	return out, "", nil
}
