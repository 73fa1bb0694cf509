// Package hostedgit provides the git-data query surface over a hosting API.
// This file contains reference listing and revision resolution.
package hostedgit

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/revision"
)

// Revision sentinels shared with local-git backed providers.
const (
	UncommittedSHA       = revision.UncommittedSHA
	UncommittedStagedSHA = revision.UncommittedStagedSHA
	DeletedOrMissingSHA  = revision.DeletedOrMissingSHA
)

// RefKind represents the type of git reference.
// This is used to classify references when listing them.
type RefKind int

const (
	// RefBranch indicates a local branch reference (refs/heads/*).
	RefBranch RefKind = iota

	// RefRemoteBranch indicates a remote branch reference (refs/remotes/origin/*).
	RefRemoteBranch

	// RefTag indicates a tag reference (refs/tags/*).
	RefTag
)

// String returns a human-readable string representation of the RefKind.
func (k RefKind) String() string {
	switch k {
	case RefBranch:
		return "branch"
	case RefRemoteBranch:
		return "remote-branch"
	case RefTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Refs lists short reference names of the given kind, optionally filtered by
// a glob pattern, sorted alphabetically. Values come from the branch and tag
// caches.
func (p *Provider) Refs(ctx context.Context, repoPath string, kind RefKind, pattern string) ([]string, error) {
	if pattern != "" {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, WrapErrorf(ErrInvalidRef, "invalid pattern %q", pattern)
		}
	}

	var names []string
	switch kind {
	case RefBranch, RefRemoteBranch:
		filter := LocalBranchFilter()
		if kind == RefRemoteBranch {
			filter = RemoteBranchFilter()
		}
		branches, err := p.GetBranches(ctx, repoPath, filter)
		if err != nil {
			return nil, err
		}
		for _, b := range branches {
			names = append(names, b.Name)
		}
	case RefTag:
		tags, err := p.GetTags(ctx, repoPath)
		if err != nil {
			return nil, err
		}
		for _, t := range tags {
			names = append(names, t.Name)
		}
	default:
		return nil, WrapErrorf(ErrInvalidRef, "unsupported reference kind %s", kind)
	}

	if pattern != "" {
		filtered := names[:0]
		for _, name := range names {
			if matched, _ := path.Match(pattern, name); matched {
				filtered = append(filtered, name)
			}
		}
		names = filtered
	}

	sort.Strings(names)
	return names, nil
}

// ResolveReference resolves ref to a commit sha, optionally as seen by the
// file at relPath.
//
// Rules, in order: empty refs, the deleted sentinel and ranges are returned
// unchanged; a full sha without a path is returned unchanged; the
// uncommitted sentinels with a path are returned unchanged; refs that do not
// look like a sha, and stash refs, are returned unchanged when there is no
// path; everything else is asked of the remote. When the remote cannot
// resolve the ref, DeletedOrMissingSHA is returned if a path was given and
// ref itself otherwise.
func (p *Provider) ResolveReference(ctx context.Context, repoPath, ref, relPath string) (string, error) {
	if ref == "" || revision.IsDeletedOrMissing(ref) || revision.IsRange(ref) {
		return ref, nil
	}
	if relPath == "" && revision.IsSHA(ref) {
		return ref, nil
	}
	if relPath != "" && revision.IsUncommitted(ref) {
		return ref, nil
	}
	if relPath == "" && (!revision.IsSHALike(ref) || revision.IsStash(ref)) {
		return ref, nil
	}

	rc, err := p.EnsureContext(ctx, repoPath)
	if err != nil {
		return "", err
	}

	sha, err := rc.API.ResolveReference(ctx, rc.Repo, ref, relPath)
	if err == nil && sha != "" {
		return sha, nil
	}
	if err != nil {
		if err := p.handleRemoteError(err, "failed to resolve reference", "repo", repoPath, "ref", ref, "path", relPath); err != nil {
			return "", err
		}
	}
	if relPath != "" {
		return DeletedOrMissingSHA, nil
	}
	return ref, nil
}

// refID identifies a reference within a repository, for example
// "vscode-vfs://github/o/r|heads/main".
func refID(repoPath string, name plumbing.ReferenceName) string {
	return repoPath + "|" + strings.TrimPrefix(name.String(), "refs/")
}
