package auth

import (
	"net/http"

	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Transport is an http.RoundTripper that applies a go-git auth method to
// every request.
type Transport struct {
	Method githttp.AuthMethod

	// Base is the underlying transport. Defaults to http.DefaultTransport.
	Base http.RoundTripper
}

// RoundTrip authorizes a copy of req and sends it.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Method == nil {
		return base.RoundTrip(req)
	}

	authed := req.Clone(req.Context())
	authed.Header.Del("Authorization")
	t.Method.SetAuth(authed)
	return base.RoundTrip(authed)
}

// NewHTTPClient returns a copy of base whose requests carry the session's
// token. A nil base uses http.DefaultClient.
func NewHTTPClient(session *Session, base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	client := *base
	client.Transport = &Transport{Method: session.Method(), Base: base.Transport}
	return &client
}
