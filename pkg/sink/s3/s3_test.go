package s3

import (
	"net/url"
	"testing"

	"github.com/ajitpratap0/phaeton/pkg/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	u, err := url.Parse("s3://lake/clean/orders.csv.gz?region=ap-southeast-3")
	require.NoError(t, err)

	loc, err := ParseLocation(u)
	require.NoError(t, err)
	assert.Equal(t, Location{Bucket: "lake", Key: "clean/orders.csv.gz", Region: "ap-southeast-3"}, loc)
	assert.Equal(t, "application/gzip", sink.ContentType(loc.Key))

	u, _ = url.Parse("s3://lake")
	_, err = ParseLocation(u)
	assert.Error(t, err)
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, sink.Default().Schemes(), "s3")

	_, err := sink.Open("s3://lake/out.jsonl")
	assert.NoError(t, err)
}
