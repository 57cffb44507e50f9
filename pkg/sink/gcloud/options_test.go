package gcloud

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientOptions(t *testing.T) {
	t.Setenv(TokenEnv, "")
	assert.Empty(t, ClientOptions(url.Values{}))
	assert.Len(t, ClientOptions(url.Values{"credentials": {"/etc/key.json"}}), 1)
	assert.Len(t, ClientOptions(url.Values{"endpoint": {"http://localhost:4443"}}), 2)

	t.Setenv(TokenEnv, "ya29.token")
	assert.Len(t, ClientOptions(url.Values{}), 1)
}
