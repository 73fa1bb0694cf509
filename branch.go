// Package hostedgit provides the git-data query surface over a hosting API.
// This file contains branch listing, including the local and remote pair
// synthesized for every remote branch.
package hostedgit

import (
	"context"
	"path"
	"sort"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/remote"
)

// Upstream is the remote branch a local branch tracks.
type Upstream struct {
	Name string
	// Missing is true when the upstream is not among the remote branches.
	Missing bool
}

// Branch is a branch as a local git client would report it.
type Branch struct {
	RepoPath string
	Name     string
	SHA      string
	Remote   bool
	Current  bool
	// Detached is set on the current branch when the repository is opened
	// at a tag or commit.
	Detached bool
	Upstream *Upstream
	Date     time.Time
}

// RefName returns the full reference name, refs/heads/x or
// refs/remotes/origin/x.
func (b *Branch) RefName() plumbing.ReferenceName {
	if b.Remote {
		return plumbing.ReferenceName("refs/remotes/" + b.Name)
	}
	return plumbing.NewBranchReferenceName(b.Name)
}

// ID returns the identifier of the branch within its repository.
func (b *Branch) ID() string {
	return refID(b.RepoPath, b.RefName())
}

// BranchPair is the two records a remote branch appears as: a local
// tracking branch and the remote branch itself.
type BranchPair struct {
	Local  Branch
	Remote Branch
}

// newBranchPair maps one remote branch to its local and origin/ records.
func newBranchPair(repoPath string, rb remote.Branch, current bool) BranchPair {
	remoteName := plumbing.NewRemoteReferenceName(DefaultRemoteName, rb.Name).Short()
	return BranchPair{
		Local: Branch{
			RepoPath: repoPath,
			Name:     rb.Name,
			SHA:      rb.SHA,
			Current:  current,
			Upstream: &Upstream{Name: remoteName},
			Date:     rb.Date,
		},
		Remote: Branch{
			RepoPath: repoPath,
			Name:     remoteName,
			SHA:      rb.SHA,
			Remote:   true,
			Date:     rb.Date,
		},
	}
}

// BranchFilter is a predicate function for filtering branches.
// It returns true if the branch should be included in the results.
type BranchFilter func(Branch) bool

// LocalBranchFilter keeps local-looking branches.
func LocalBranchFilter() BranchFilter {
	return func(b Branch) bool { return !b.Remote }
}

// RemoteBranchFilter keeps origin/ branches.
func RemoteBranchFilter() BranchFilter {
	return func(b Branch) bool { return b.Remote }
}

// BranchPatternFilter keeps branches whose name matches a glob pattern.
func BranchPatternFilter(pattern string) BranchFilter {
	return func(b Branch) bool {
		matched, err := path.Match(pattern, b.Name)
		return err == nil && matched
	}
}

// GetBranches returns every branch of the repository, each remote branch as
// a local and a remote record, sorted with local branches first and then by
// name. Filters are applied progressively; a branch must pass all of them.
//
// Remote failures are logged and yield an empty list.
func (p *Provider) GetBranches(ctx context.Context, repoPath string, filters ...BranchFilter) ([]Branch, error) {
	rc, err := p.EnsureContext(ctx, repoPath)
	if err != nil {
		return nil, err
	}

	remoteBranches, err := p.remoteBranches(ctx, rc)
	if err != nil || remoteBranches == nil {
		return nil, err
	}

	current := p.currentBranchName(rc)
	branches := make([]Branch, 0, 2*len(remoteBranches))
	for _, rb := range remoteBranches {
		pair := newBranchPair(repoPath, rb, rb.Name == current)
		for _, b := range []Branch{pair.Local, pair.Remote} {
			if includeBranch(b, filters) {
				branches = append(branches, b)
			}
		}
	}

	sort.SliceStable(branches, func(i, j int) bool {
		if branches[i].Remote != branches[j].Remote {
			return !branches[i].Remote
		}
		return branches[i].Name < branches[j].Name
	})
	return branches, nil
}

// GetBranch returns the branch the repository is opened at. When opened at a
// tag or commit the result is a detached branch named after the revision.
// A branch that is missing from the remote branch list keeps its name and
// reports its upstream as missing.
func (p *Provider) GetBranch(ctx context.Context, repoPath string) (*Branch, error) {
	rc, err := p.EnsureContext(ctx, repoPath)
	if err != nil {
		return nil, err
	}

	rev := rc.Metadata.Revision
	if rev.Type == RevisionTag || rev.Type == RevisionCommit {
		return &Branch{
			RepoPath: repoPath,
			Name:     rev.Name,
			SHA:      rev.SHA,
			Current:  true,
			Detached: true,
		}, nil
	}

	name := p.currentBranchName(rc)
	remoteBranches, err := p.remoteBranches(ctx, rc)
	if err != nil {
		return nil, err
	}
	for _, rb := range remoteBranches {
		if rb.Name == name {
			pair := newBranchPair(repoPath, rb, true)
			return &pair.Local, nil
		}
	}

	pair := newBranchPair(repoPath, remote.Branch{Name: name, SHA: rev.SHA}, true)
	pair.Local.Upstream.Missing = true
	return &pair.Local, nil
}

// currentBranchName is the branch name of the opened revision with any
// origin/ prefix removed.
func (p *Provider) currentBranchName(rc *RepositoryContext) string {
	rev := rc.Metadata.Revision
	if rev.Type != RevisionBranch && rev.Type != RevisionRemoteBranch {
		return ""
	}
	return remote.StripOrigin(rev.Name)
}

// remoteBranches returns every remote branch, paging through the API once
// and caching the result per repository.
func (p *Provider) remoteBranches(ctx context.Context, rc *RepositoryContext) ([]remote.Branch, error) {
	branches, err := p.caches.branches.Do(ctx, rc.RepoPath, func(ctx context.Context) ([]remote.Branch, error) {
		return collectPages(ctx, func(ctx context.Context, cursor string) (*remote.Page[remote.Branch], error) {
			return rc.API.Branches(ctx, rc.Repo, remote.PageOptions{Cursor: cursor, Limit: p.opts.MaxPageSize})
		})
	})
	if err != nil {
		return nil, p.handleRemoteError(err, "failed to get branches", "repo", rc.RepoPath)
	}
	return branches, nil
}

// collectPages follows cursors until the remote reports no further pages.
func collectPages[T any](ctx context.Context, fetch func(ctx context.Context, cursor string) (*remote.Page[T], error)) ([]T, error) {
	values := []T{}
	cursor := ""
	for {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		values = append(values, page.Values...)
		if !page.HasMore() || page.Paging.Cursor == "" || page.Paging.Cursor == cursor {
			return values, nil
		}
		cursor = page.Paging.Cursor
	}
}

func includeBranch(b Branch, filters []BranchFilter) bool {
	for _, filter := range filters {
		if !filter(b) {
			return false
		}
	}
	return true
}
