package auth

import (
	"context"
	"os"
	"strings"
)

// DefaultTokenEnvVars are the environment variables NewEnvTokenProvider
// reads when none are given.
var DefaultTokenEnvVars = []string{"GITHUB_TOKEN", "GH_TOKEN"}

// TokenProvider serves a fixed personal access token.
type TokenProvider struct {
	token   string
	account Account

	// AllowedHosts restricts the token to specific host patterns.
	// If empty, the token is offered for every host.
	// Supports patterns like "*.github.com" or "github.*".
	AllowedHosts []string
}

// NewTokenProvider creates a provider for a static token.
func NewTokenProvider(token string) *TokenProvider {
	return &TokenProvider{token: strings.TrimSpace(token)}
}

// NewEnvTokenProvider creates a provider from the first non-empty
// environment variable in vars, or DefaultTokenEnvVars if vars is empty.
func NewEnvTokenProvider(vars ...string) *TokenProvider {
	if len(vars) == 0 {
		vars = DefaultTokenEnvVars
	}
	for _, v := range vars {
		if token := os.Getenv(v); token != "" {
			return NewTokenProvider(token)
		}
	}
	return NewTokenProvider("")
}

// WithAccount sets the account reported on sessions.
func (p *TokenProvider) WithAccount(id, label string) *TokenProvider {
	p.account = Account{ID: id, Label: label}
	return p
}

// WithAllowedHosts sets the allowed hosts for this provider.
func (p *TokenProvider) WithAllowedHosts(hosts ...string) *TokenProvider {
	p.AllowedHosts = hosts
	return p
}

// GetSession returns a session carrying the token. It returns nil, nil when
// there is no token or req.Host is not allowed. A static token cannot be
// refreshed, so ForceNewSession returns the same token.
func (p *TokenProvider) GetSession(_ context.Context, req SessionRequest) (*Session, error) {
	if p.token == "" {
		return nil, nil
	}
	if req.Host != "" && len(p.AllowedHosts) > 0 && !p.isHostAllowed(req.Host) {
		return nil, nil
	}
	return &Session{
		AccessToken: p.token,
		Account:     p.account,
		Scopes:      req.Scopes,
	}, nil
}

func (p *TokenProvider) isHostAllowed(host string) bool {
	for _, pattern := range p.AllowedHosts {
		if matchesPattern(host, pattern) {
			return true
		}
	}
	return false
}

// matchesPattern checks if a host matches a pattern with one "*" wildcard
// as its first or last label.
func matchesPattern(host, pattern string) bool {
	if host == pattern {
		return true
	}
	if strings.Count(pattern, "*") != 1 {
		return false
	}

	if suffix, ok := strings.CutPrefix(pattern, "*."); ok {
		return host == suffix || strings.HasSuffix(host, "."+suffix)
	}
	if prefix, ok := strings.CutSuffix(pattern, ".*"); ok {
		return strings.HasPrefix(host, prefix+".")
	}
	return false
}
