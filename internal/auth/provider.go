// Package auth obtains sessions for the hosting API and applies them to
// outgoing requests through go-git's HTTP auth methods.
package auth

import (
	"context"
	"errors"

	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// ErrConsentDeclined is returned by a Provider when the user refused to
// grant access. Callers should stop prompting until the user reconnects.
var ErrConsentDeclined = errors.New("authentication consent declined")

// Account identifies the signed-in user.
type Account struct {
	ID    string
	Label string
}

// Session is an authenticated session for the hosting API.
type Session struct {
	AccessToken string
	Account     Account
	Scopes      []string
}

// Method returns the go-git auth method that carries the session token.
func (s *Session) Method() githttp.AuthMethod {
	return &githttp.TokenAuth{Token: s.AccessToken}
}

// SessionRequest describes the session a caller needs.
type SessionRequest struct {
	// Host is the API host the session will be used against.
	Host string

	// Scopes are the OAuth scopes required.
	Scopes []string

	// CreateIfNeeded allows the provider to prompt for a new session.
	CreateIfNeeded bool

	// ForceNewSession asks the provider to discard any existing session,
	// typically after the remote rejected its token.
	ForceNewSession bool
}

// Provider interface that all session providers must implement.
type Provider interface {
	// GetSession returns a session for req.
	// Returns nil, nil if no session exists and none could be created.
	// Returns ErrConsentDeclined if the user refused.
	GetSession(ctx context.Context, req SessionRequest) (*Session, error)
}
