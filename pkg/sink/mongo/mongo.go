// Package mongo inserts records as documents with fields in column order.
// URIs are standard MongoDB connection strings whose path names the
// database and collection: mongodb://host:27017/db/collection.
package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/ajitpratap0/phaeton/pkg/sink"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	for _, scheme := range []string{"mongodb", "mongodb+srv"} {
		if err := sink.RegisterStore(scheme, New); err != nil {
			panic(err)
		}
	}
}

// Target is a parsed MongoDB sink URI.
type Target struct {
	URI        string
	Database   string
	Collection string
}

// ParseTarget splits the collection off the path and returns a connection
// string the driver accepts.
func ParseTarget(u *url.URL) (Target, error) {
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Target{}, fmt.Errorf("mongodb uri must end in /database/collection")
	}
	conn := *u
	conn.Path = "/" + parts[0]
	conn.RawPath = ""
	return Target{URI: conn.String(), Database: parts[0], Collection: parts[1]}, nil
}

// Writer inserts batches with InsertMany.
type Writer struct {
	target Target
	client *mongo.Client
	coll   *mongo.Collection
}

// New creates a writer from a URI.
func New(u *url.URL) (sink.Writer, error) {
	t, err := ParseTarget(u)
	if err != nil {
		return nil, err
	}
	return &Writer{target: t}, nil
}

// Open implements sink.Writer.
func (w *Writer) Open(ctx context.Context, _ *record.Header) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(w.target.URI))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to connect to MongoDB")
	}
	w.client = client
	w.coll = client.Database(w.target.Database).Collection(w.target.Collection)
	return nil
}

// Document converts a record to an ordered BSON document.
func Document(r *record.Record) bson.D {
	doc := make(bson.D, len(r.Values))
	for i, v := range r.Values {
		doc[i] = bson.E{Key: r.Header.Name(i), Value: v.Interface()}
	}
	return doc
}

// Write implements sink.Writer.
func (w *Writer) Write(ctx context.Context, rows []*record.Record) error {
	if len(rows) == 0 {
		return nil
	}
	docs := make([]interface{}, len(rows))
	for i, r := range rows {
		docs[i] = Document(r)
	}
	if _, err := w.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, fmt.Sprintf("failed to insert into %s", w.target.Collection))
	}
	return nil
}

// Close implements sink.Writer.
func (w *Writer) Close(ctx context.Context) error {
	if w.client == nil {
		return nil
	}
	return w.client.Disconnect(ctx)
}
