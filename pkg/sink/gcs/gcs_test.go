package gcs

import (
	"net/url"
	"testing"

	"github.com/ajitpratap0/phaeton/pkg/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObject(t *testing.T) {
	u, err := url.Parse("gs://lake/quarantine/orders.jsonl")
	require.NoError(t, err)

	bucket, object, err := ParseObject(u)
	require.NoError(t, err)
	assert.Equal(t, "lake", bucket)
	assert.Equal(t, "quarantine/orders.jsonl", object)

	u, _ = url.Parse("gs:///orders.csv")
	_, _, err = ParseObject(u)
	assert.Error(t, err)
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, sink.Default().Schemes(), "gs")
}
