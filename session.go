// Package hostedgit provides the git-data query surface over a hosting API.
// This file contains session acquisition and the handling of remote failures.
package hostedgit

import (
	"context"
	"errors"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/auth"
	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/remote"
)

const sessionKey = "session"

// Session returns the current session, asking the AuthProvider for one if
// none is cached. Concurrent callers share one request.
func (p *Provider) Session(ctx context.Context) (*Session, error) {
	return p.ensureSession(ctx)
}

func (p *Provider) ensureSession(ctx context.Context) (*auth.Session, error) {
	if p.skipPrompt.Load() {
		return nil, &AuthenticationError{Reason: AuthDeclined}
	}
	return p.sessions.Do(ctx, sessionKey, p.fetchSession)
}

func (p *Provider) fetchSession(ctx context.Context) (*auth.Session, error) {
	req := auth.SessionRequest{
		Host:            p.host,
		Scopes:          p.opts.Scopes,
		CreateIfNeeded:  true,
		ForceNewSession: p.forceNew.Swap(false),
	}

	session, err := p.opts.Auth.GetSession(ctx, req)
	switch {
	case errors.Is(err, auth.ErrConsentDeclined):
		p.skipPrompt.Store(true)
		p.logger.Debug("session consent declined, suppressing prompts until reconnect")
		return nil, &AuthenticationError{Reason: AuthDeclined, Err: err}
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, WrapError(ctxErr, "session request cancelled")
		}
		return nil, WrapError(errors.Join(ErrAuthFailed, err), "failed to get session")
	case session == nil:
		return nil, &AuthenticationError{Reason: AuthNotFound}
	}

	p.logger.Debug("session acquired", "account", session.Account.Label)
	return session, nil
}

// OnSessionsChanged drops the cached session and every repository context.
// Call it when the authentication provider reports a change.
func (p *Provider) OnSessionsChanged() {
	p.dropSessionState()
	p.caches.users.Clear()
	p.emit(Event{Type: EventSessionChanged})
}

// dropSessionState forgets the session, every context built on it and the
// cached file logs, which continue pages on their own.
func (p *Provider) dropSessionState() {
	p.sessions.Clear()
	p.contexts.Clear()
	p.fileLogs.Clear()
}

// Reconnect clears a declined consent so the next call may prompt again.
func (p *Provider) Reconnect() {
	p.skipPrompt.Store(false)
	p.OnSessionsChanged()
}

// handleRemoteError decides whether err escapes a read operation. Context,
// authentication and cancellation failures are returned. Remote failures are
// logged and swallowed, returning nil. A 401 additionally schedules a fresh
// session for the next call.
func (p *Provider) handleRemoteError(err error, msg string, args ...any) error {
	if err == nil {
		return nil
	}

	if IsCancelled(err) {
		p.logger.Debug(msg+" cancelled", args...)
		return err
	}

	var authErr *AuthenticationError
	var openErr *OpenRepositoryError
	if errors.As(err, &authErr) || errors.As(err, &openErr) || errors.Is(err, ErrAuthFailed) {
		return err
	}

	var httpErr *remote.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}

	switch {
	case remote.IsUnauthorized(err):
		p.forceNew.Store(true)
		p.dropSessionState()
	case remote.IsRateLimited(err):
		p.logger.Warn(msg+": rate limited", append(args, "status", httpErr.StatusCode, "error", err)...)
		return nil
	}
	p.logger.Warn(msg, append(args, "status", httpErr.StatusCode, "error", err)...)
	return nil
}
