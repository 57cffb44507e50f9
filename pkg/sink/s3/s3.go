// Package s3 streams encoded output to Amazon S3 through the multipart
// upload manager. URIs have the form s3://bucket/key.ext?region=us-east-1.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/ajitpratap0/phaeton/pkg/sink"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	partSize    = 10 * 1024 * 1024
	concurrency = 3
)

func init() {
	if err := sink.RegisterTarget("s3", Open); err != nil {
		panic(err)
	}
}

// Location is a parsed S3 object address.
type Location struct {
	Bucket string
	Key    string
	Region string
}

// ParseLocation extracts bucket, key and region from an s3 URI.
func ParseLocation(u *url.URL) (Location, error) {
	loc := Location{
		Bucket: u.Host,
		Key:    strings.TrimPrefix(u.Path, "/"),
		Region: u.Query().Get("region"),
	}
	if loc.Bucket == "" || loc.Key == "" {
		return Location{}, fmt.Errorf("s3 uri %q needs a bucket and a key", u.String())
	}
	return loc, nil
}

// Open starts a streaming upload. The object becomes visible when the
// returned writer is closed.
func Open(ctx context.Context, u *url.URL) (io.WriteCloser, error) {
	loc, err := ParseLocation(u)
	if err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if loc.Region != "" {
		opts = append(opts, awsconfig.WithRegion(loc.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize
		u.Concurrency = concurrency
	})

	pr, pw := io.Pipe()
	up := &upload{pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(loc.Bucket),
			Key:         aws.String(loc.Key),
			Body:        pr,
			ContentType: aws.String(sink.ContentType(loc.Key)),
		})
		_ = pr.CloseWithError(err)
		up.done <- err
	}()
	return up, nil
}

type upload struct {
	pw   *io.PipeWriter
	done chan error
}

func (u *upload) Write(p []byte) (int, error) { return u.pw.Write(p) }

func (u *upload) Close() error {
	if err := u.pw.Close(); err != nil {
		return err
	}
	if err := <-u.done; err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}
