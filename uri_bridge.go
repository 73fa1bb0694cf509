// Package hostedgit provides the git-data query surface over a hosting API.
// This file contains the repository bridge for URI-addressed repositories.
package hostedgit

import (
	"context"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/revision"
)

// URIBridge resolves repository paths of the form
// scheme://github/owner/name[?ref=revision] without any host integration.
// It is always available. Revision shas are left empty and resolved by the
// provider.
type URIBridge struct {
	scheme string
}

var _ RepositoryBridge = (*URIBridge)(nil)

// NewURIBridge creates a bridge for repository paths using scheme.
func NewURIBridge(scheme string) *URIBridge {
	if scheme == "" {
		scheme = DefaultScheme
	}
	return &URIBridge{scheme: scheme}
}

// Available always reports true.
func (b *URIBridge) Available() bool {
	return true
}

// Metadata parses repoPath.
func (b *URIBridge) Metadata(ctx context.Context, repoPath string) (*RepositoryMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, WrapError(err, "context cancelled")
	}

	owner, name, ref, err := ParseRepoPath(repoPath)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(repoPath, b.scheme+"://") {
		return nil, &OpenRepositoryError{RepoPath: repoPath, Reason: ReasonNotHostedRepository}
	}

	md := &RepositoryMetadata{Owner: owner, Name: name}
	switch {
	case ref == "":
	case revision.IsSHA(ref):
		md.Revision = RevisionMetadata{Type: RevisionCommit, Name: ref, SHA: ref}
	case plumbing.ReferenceName(ref).IsTag():
		md.Revision = RevisionMetadata{Type: RevisionTag, Name: plumbing.ReferenceName(ref).Short()}
	case strings.HasPrefix(ref, DefaultRemoteName+"/"):
		md.Revision = RevisionMetadata{Type: RevisionRemoteBranch, Name: ref}
	default:
		md.Revision = RevisionMetadata{Type: RevisionBranch, Name: plumbing.ReferenceName(ref).Short()}
	}
	return md, nil
}

// ParseRepoPath splits a repository path into owner, name and the optional
// ref query parameter.
func ParseRepoPath(repoPath string) (owner, name, ref string, err error) {
	u, err := url.Parse(repoPath)
	if err != nil {
		return "", "", "", WrapErrorf(ErrNotHostedRepository, "invalid repository path %q", repoPath)
	}
	if u.Host != DefaultAuthority {
		return "", "", "", WrapErrorf(ErrNotHostedRepository, "unsupported authority %q", u.Host)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", WrapErrorf(ErrNotHostedRepository, "repository path %q is not owner/name", repoPath)
	}

	return parts[0], strings.TrimSuffix(parts[1], ".git"), u.Query().Get("ref"), nil
}

// FormatRepoPath builds the repository path for owner/name under scheme.
func FormatRepoPath(scheme, owner, name string) string {
	if scheme == "" {
		scheme = DefaultScheme
	}
	return (&url.URL{Scheme: scheme, Host: DefaultAuthority, Path: "/" + owner + "/" + name}).String()
}
