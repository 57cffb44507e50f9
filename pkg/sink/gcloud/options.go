// Package gcloud builds Google Cloud client options shared by the gs and
// bigquery sinks.
package gcloud

import (
	"net/url"
	"os"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// TokenEnv names an environment variable holding a raw OAuth2 access token.
const TokenEnv = "PHAETON_GOOGLE_ACCESS_TOKEN"

// ClientOptions derives client options from URI query parameters:
//
//	credentials=/path/key.json  service account key file
//	endpoint=http://host:port   custom endpoint, unauthenticated (emulators)
//
// Without either, a token from TokenEnv is used when set, and application
// default credentials otherwise.
func ClientOptions(q url.Values) []option.ClientOption {
	var opts []option.ClientOption
	if ep := q.Get("endpoint"); ep != "" {
		return append(opts, option.WithEndpoint(ep), option.WithoutAuthentication())
	}
	if creds := q.Get("credentials"); creds != "" {
		return append(opts, option.WithCredentialsFile(creds))
	}
	if tok := os.Getenv(TokenEnv); tok != "" {
		opts = append(opts, option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok})))
	}
	return opts
}
