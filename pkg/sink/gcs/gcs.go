// Package gcs streams encoded output to Google Cloud Storage. URIs have the
// form gs://bucket/object.ext with optional credentials or endpoint query
// parameters.
package gcs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/ajitpratap0/phaeton/pkg/sink"
	"github.com/ajitpratap0/phaeton/pkg/sink/gcloud"
	"go.uber.org/multierr"
)

const chunkSize = 8 * 1024 * 1024

func init() {
	if err := sink.RegisterTarget("gs", Open); err != nil {
		panic(err)
	}
}

// ParseObject returns the bucket and object name of a gs URI.
func ParseObject(u *url.URL) (bucket, object string, err error) {
	bucket, object = u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || object == "" {
		return "", "", fmt.Errorf("gs uri %q needs a bucket and an object", u.String())
	}
	return bucket, object, nil
}

// Open creates the object writer. The object is committed on Close.
func Open(ctx context.Context, u *url.URL) (io.WriteCloser, error) {
	bucket, object, err := ParseObject(u)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx, gcloud.ClientOptions(u.Query())...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = sink.ContentType(object)
	w.ChunkSize = chunkSize
	return &objectWriter{w: w, client: client}, nil
}

type objectWriter struct {
	w      *storage.Writer
	client *storage.Client
}

func (o *objectWriter) Write(p []byte) (int, error) { return o.w.Write(p) }

func (o *objectWriter) Close() error {
	err := o.w.Close()
	return multierr.Append(err, o.client.Close())
}
