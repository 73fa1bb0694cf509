package auth

import (
	"context"
	"errors"
	"fmt"
)

// ProviderConfig configures a provider with host pattern matching.
type ProviderConfig struct {
	// Provider is the session provider to use.
	Provider Provider

	// HostPatterns are host patterns this provider should handle.
	// If empty, this provider will be tried for all hosts.
	HostPatterns []string
}

// CompositeProvider tries providers in order until one returns a session.
type CompositeProvider struct {
	// Providers is the ordered list of providers to try.
	Providers []ProviderConfig

	// ContinueOnError determines whether to continue trying other providers
	// if a provider returns an error. ErrConsentDeclined always stops the
	// chain.
	ContinueOnError bool
}

// NewCompositeProvider creates a composite provider that continues past
// failing providers.
func NewCompositeProvider() *CompositeProvider {
	return &CompositeProvider{ContinueOnError: true}
}

// AddProvider appends a provider, optionally restricted to host patterns.
func (c *CompositeProvider) AddProvider(provider Provider, hostPatterns ...string) *CompositeProvider {
	c.Providers = append(c.Providers, ProviderConfig{
		Provider:     provider,
		HostPatterns: hostPatterns,
	})
	return c
}

// SetContinueOnError configures error handling strategy.
func (c *CompositeProvider) SetContinueOnError(continueOnError bool) *CompositeProvider {
	c.ContinueOnError = continueOnError
	return c
}

// GetSession returns the first session any applicable provider offers.
func (c *CompositeProvider) GetSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if len(c.Providers) == 0 {
		return nil, fmt.Errorf("no session providers configured")
	}

	var lastError error
	for i, config := range c.Providers {
		if !c.shouldTryProvider(req.Host, config.HostPatterns) {
			continue
		}

		session, err := config.Provider.GetSession(ctx, req)
		if err != nil {
			if errors.Is(err, ErrConsentDeclined) || ctx.Err() != nil {
				return nil, err
			}
			lastError = fmt.Errorf("provider %d failed: %w", i, err)
			if !c.ContinueOnError {
				return nil, lastError
			}
			continue
		}
		if session != nil {
			return session, nil
		}
	}

	if lastError != nil {
		return nil, lastError
	}
	return nil, nil
}

func (c *CompositeProvider) shouldTryProvider(host string, patterns []string) bool {
	if len(patterns) == 0 || host == "" {
		return true
	}
	for _, pattern := range patterns {
		if matchesPattern(host, pattern) {
			return true
		}
	}
	return false
}
