// Package hostedgit provides the git-data query surface over a hosting API.
// This file contains repository context resolution.
package hostedgit

import (
	"context"
	"errors"
	"net/url"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/auth"
	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/remote"
	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/revision"
)

// RepositoryContext is everything needed to query one hosted repository.
// It is resolved once per repository path and shared until the session
// changes or the repository is closed.
type RepositoryContext struct {
	RepoPath string
	Repo     remote.Repo
	Session  *Session
	Metadata *RepositoryMetadata
	API      RemoteAPI
}

// EnsureContext resolves the repository context for repoPath. Concurrent
// callers for the same path share one resolution.
//
// It returns an *OpenRepositoryError when repoPath is not served by this
// provider, when the repository bridge has not registered yet, or when no
// session is available.
func (p *Provider) EnsureContext(ctx context.Context, repoPath string) (*RepositoryContext, error) {
	if !p.servesPath(repoPath) {
		return nil, &OpenRepositoryError{RepoPath: repoPath, Reason: ReasonNotHostedRepository}
	}
	return p.contexts.Do(ctx, repoPath, func(ctx context.Context) (*RepositoryContext, error) {
		return p.resolveContext(ctx, repoPath)
	})
}

func (p *Provider) servesPath(repoPath string) bool {
	u, err := url.Parse(repoPath)
	return err == nil && u.Scheme == p.opts.Scheme
}

func (p *Provider) resolveContext(ctx context.Context, repoPath string) (*RepositoryContext, error) {
	bridge := p.opts.Bridge
	if !bridge.Available() {
		p.startDiscovery()
		return nil, &OpenRepositoryError{RepoPath: repoPath, Reason: ReasonBridgeMissing}
	}

	session, err := p.ensureSession(ctx)
	if err != nil {
		var authErr *AuthenticationError
		if errors.As(err, &authErr) {
			reason := ReasonAuthNotFound
			if authErr.Reason == AuthDeclined {
				reason = ReasonAuthDenied
			}
			return nil, &OpenRepositoryError{RepoPath: repoPath, Reason: reason, Err: authErr}
		}
		return nil, err
	}

	md, err := bridge.Metadata(ctx, repoPath)
	if err != nil {
		return nil, WrapErrorf(err, "failed to resolve repository %s", repoPath)
	}

	api, err := p.opts.NewAPI(auth.NewHTTPClient(session, p.opts.HTTPClient))
	if err != nil {
		return nil, WrapError(err, "failed to create API client")
	}
	api = remote.WithoutOrigin(api)

	// Copy so filling in the sha never mutates what the bridge returned.
	resolved := *md
	if err := p.fillRevision(ctx, api, &resolved); err != nil {
		return nil, err
	}

	p.logger.Debug("repository context resolved",
		"repo", repoPath,
		"remote", resolved.Repo().String(),
		"revision", resolved.Revision.Name,
		"sha", resolved.Revision.SHA,
	)

	return &RepositoryContext{
		RepoPath: repoPath,
		Repo:     resolved.Repo(),
		Session:  session,
		Metadata: &resolved,
		API:      api,
	}, nil
}

// fillRevision resolves the revision sha when the bridge left it empty. An
// unnamed revision means the default branch.
func (p *Provider) fillRevision(ctx context.Context, api RemoteAPI, md *RepositoryMetadata) error {
	rev := &md.Revision
	if rev.SHA != "" {
		return nil
	}

	if rev.Name == "" || (rev.Type == RevisionBranch && rev.Name == "HEAD") {
		info, err := api.Repository(ctx, md.Repo())
		if err != nil {
			return WrapErrorf(errors.Join(ErrResolveFailed, err), "failed to get repository %s", md.Repo())
		}
		rev.Type = RevisionBranch
		rev.Name = info.DefaultBranch
		rev.SHA = info.HeadSHA
		return nil
	}

	if rev.Type == RevisionCommit && revision.IsSHA(rev.Name) {
		rev.SHA = rev.Name
		return nil
	}

	sha, err := api.ResolveReference(ctx, md.Repo(), rev.Name, "")
	if err != nil {
		return WrapErrorf(errors.Join(ErrResolveFailed, err), "failed to resolve revision %s", rev.Name)
	}
	rev.SHA = sha
	return nil
}

// startDiscovery polls the bridge until it registers, then tells callers to
// retry by emitting EventRepositoriesChanged.
func (p *Provider) startDiscovery() {
	started := p.poller.Start(p.opts.Bridge.Available, func() {
		p.logger.Debug("repository bridge became available")
		p.emit(Event{Type: EventRepositoriesChanged})
	})
	if started {
		p.logger.Debug("repository bridge unavailable, polling")
	}
}

// CloseRepository drops the context and every cached value for repoPath.
func (p *Provider) CloseRepository(repoPath string) {
	p.contexts.Delete(repoPath)
	p.caches.invalidate(repoPath, AllCacheCategories...)
	p.dropDocuments(repoPath)
}
