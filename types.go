// Package hostedgit provides the git-data query surface over a hosting API.
// This file re-exports the collaborator types callers implement or receive.
package hostedgit

import (
	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/auth"
	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/remote"
)

type (
	// AuthProvider supplies sessions for the hosting API.
	AuthProvider = auth.Provider

	// Session is an authenticated session.
	Session = auth.Session

	// SessionRequest describes the session the provider needs.
	SessionRequest = auth.SessionRequest

	// Account identifies the signed-in user.
	Account = auth.Account

	// RemoteAPI is the set of calls made against the hosting API.
	RemoteAPI = remote.API

	// Repo identifies a hosted repository.
	Repo = remote.Repo

	// PageOptions selects one page of a remote list call.
	PageOptions = remote.PageOptions
)

// RemotePage is one page of a remote list call.
type RemotePage[T any] = remote.Page[T]

// ErrConsentDeclined is returned by an AuthProvider when the user refused
// to grant access.
var ErrConsentDeclined = auth.ErrConsentDeclined

type (
	// TokenAuth serves a static access token.
	TokenAuth = auth.TokenProvider

	// CompositeAuth tries several AuthProviders in order.
	CompositeAuth = auth.CompositeProvider
)

// NewTokenAuth returns an AuthProvider for a static access token.
func NewTokenAuth(token string) *TokenAuth {
	return auth.NewTokenProvider(token)
}

// NewEnvTokenAuth returns an AuthProvider reading the first non-empty
// variable of vars, or of GITHUB_TOKEN and GH_TOKEN when none are given.
func NewEnvTokenAuth(vars ...string) *TokenAuth {
	return auth.NewEnvTokenProvider(vars...)
}

// NewCompositeAuth returns an empty CompositeAuth.
func NewCompositeAuth() *CompositeAuth {
	return auth.NewCompositeProvider()
}
