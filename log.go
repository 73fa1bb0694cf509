// Package hostedgit provides the git-data query surface over a hosting API.
// This file contains commit history with cursor-based continuation.
package hostedgit

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/remote"
	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/revision"
)

// errNoResult marks a swallowed failure so it is not cached.
var errNoResult = errors.New("no result")

// LogOptions selects a page of history.
type LogOptions struct {
	// Ref is the revision to walk from. Empty or "HEAD" means the revision
	// the repository is opened at.
	Ref string

	// Limit is the page size. DefaultLimit uses the configured default and
	// 0 uses the maximum.
	Limit int

	// Cursor continues from a previous page.
	Cursor string

	// Since excludes older commits when non-zero.
	Since time.Time

	// Authors restricts history to these author emails.
	Authors []string
}

// LogResult is one or more pages of history. Commits holds every commit
// seen so far and Order their sha in log order.
//
// A LogResult is never modified after it is returned. More returns a new
// result, so a chain must be continued from its latest result, one call at
// a time.
type LogResult struct {
	RepoPath string
	SHA      string
	Path     string
	Commits  map[string]*Commit
	Order    []string
	Limit    int
	HasMore  bool
	Cursor   string

	provider *Provider
	query    remote.CommitsOptions
	// viewer is fixed for the chain so every page substitutes the same name.
	viewer string
}

// Contains reports whether sha has been seen.
func (r *LogResult) Contains(sha string) bool {
	_, ok := r.Commits[sha]
	return ok
}

// Ordered returns the commits in log order.
func (r *LogResult) Ordered() []*Commit {
	out := make([]*Commit, 0, len(r.Order))
	for _, sha := range r.Order {
		out = append(out, r.Commits[sha])
	}
	return out
}

// More fetches the next page and returns a result holding both pages. A sha
// already present is kept from its first page. When there is nothing more,
// the receiver is returned. A swallowed remote failure yields a copy that
// reports no further pages.
//
// The repository context is resolved again for every page, so a chain
// started before a session change continues with the new session.
func (r *LogResult) More(ctx context.Context, limit int) (*LogResult, error) {
	if !r.HasMore || r.provider == nil {
		return r, nil
	}

	p := r.provider
	rc, err := p.EnsureContext(ctx, r.RepoPath)
	if err != nil {
		return nil, err
	}

	// Continue from the cursor with the original filters
	query := r.query
	query.Cursor = r.Cursor
	query.Limit = p.pageSize(limit)

	page, err := rc.API.Commits(ctx, rc.Repo, r.SHA, query)
	if err != nil {
		if err := p.handleRemoteError(err, "failed to get more commits", "repo", r.RepoPath, "ref", r.SHA, "cursor", r.Cursor); err != nil {
			return nil, err
		}
		next := r.clone()
		next.HasMore = false
		return next, nil
	}

	next := r.clone()
	next.Limit = r.Limit + query.Limit
	next.append(page)
	return next, nil
}

// MoreUntil pages until sha has been seen or history is exhausted. It makes
// no request when sha is already present.
func (r *LogResult) MoreUntil(ctx context.Context, sha string) (*LogResult, error) {
	cur := r
	for !cur.Contains(sha) && cur.HasMore {
		next, err := cur.More(ctx, DefaultLimit)
		if err != nil {
			return nil, err
		}
		if next == cur {
			break
		}
		cur = next
	}
	return cur, nil
}

func (r *LogResult) clone() *LogResult {
	next := *r
	next.Commits = make(map[string]*Commit, len(r.Commits))
	for sha, c := range r.Commits {
		next.Commits[sha] = c
	}
	next.Order = slices.Clone(r.Order)
	return &next
}

// append merges page into r, dropping shas already present.
func (r *LogResult) append(page *remote.Page[remote.Commit]) {
	for i := range page.Values {
		rc := &page.Values[i]
		if _, ok := r.Commits[rc.SHA]; ok {
			continue
		}
		c := newCommit(r.RepoPath, rc, r.viewer)
		if r.Path != "" {
			synthesizeFileChange(c, rc, r.Path)
		}
		r.Commits[c.SHA] = c
		r.Order = append(r.Order, c.SHA)
	}

	r.HasMore = page.HasMore()
	r.Cursor = ""
	if r.HasMore {
		r.Cursor = page.Paging.Cursor
	}
}

// synthesizeFileChange records the whole-commit stats as the change to
// relPath when history reports a single changed file without per-file detail.
func synthesizeFileChange(c *Commit, rc *remote.Commit, relPath string) {
	if len(c.Files) > 0 || rc.ChangedFiles != 1 {
		return
	}
	c.Files = []FileChange{{
		Path:      relPath,
		Status:    FileModified,
		Additions: rc.Additions,
		Deletions: rc.Deletions,
		Changes:   rc.Additions + rc.Deletions,
	}}
}

// GetLog returns the first page of history reachable from opts.Ref.
// Ranges are not supported and fail with ErrInvalidRef.
//
// Remote failures are logged and yield nil.
func (p *Provider) GetLog(ctx context.Context, repoPath string, opts LogOptions) (*LogResult, error) {
	return p.log(ctx, repoPath, "", opts)
}

// GetLogForFile returns the first page of history of uri.Path, walking from
// opts.Ref or, when that is empty, from uri.Ref. The first page requested
// with default options is cached per document.
func (p *Provider) GetLogForFile(ctx context.Context, uri DocumentURI, opts LogOptions) (*LogResult, error) {
	if uri.Path == "" {
		return nil, WrapError(ErrInvalidRef, "file path cannot be empty")
	}
	if opts.Ref == "" && !revision.IsUncommitted(uri.Ref) {
		opts.Ref = uri.Ref
	}

	// Only the default first page is cached
	if opts.Cursor != "" || !opts.Since.IsZero() || len(opts.Authors) > 0 {
		return p.log(ctx, uri.RepoPath, uri.Path, opts)
	}

	key := DocumentURI{RepoPath: uri.RepoPath, Path: uri.Path, Ref: opts.Ref}.key() + keySep + strconv.Itoa(p.pageSize(opts.Limit))
	result, err := p.fileLogs.Do(ctx, key, func(ctx context.Context) (*LogResult, error) {
		result, err := p.log(ctx, uri.RepoPath, uri.Path, opts)
		if err == nil && result == nil {
			return nil, errNoResult
		}
		return result, err
	})
	if errors.Is(err, errNoResult) {
		return nil, nil
	}
	return result, err
}

// GetLogRefsOnly returns the shas of the first page of history in log order.
func (p *Provider) GetLogRefsOnly(ctx context.Context, repoPath string, opts LogOptions) ([]string, error) {
	result, err := p.GetLog(ctx, repoPath, opts)
	if err != nil || result == nil {
		return nil, err
	}
	return result.Order, nil
}

func (p *Provider) log(ctx context.Context, repoPath, relPath string, opts LogOptions) (*LogResult, error) {
	// Validate the revision before any remote work
	ref := opts.Ref
	if revision.IsRange(ref) {
		return nil, WrapErrorf(ErrInvalidRef, "log of range %s is not supported", ref)
	}
	if ref != "" && ref != "HEAD" {
		if err := revision.Validate(ref); err != nil {
			return nil, WrapErrorf(ErrInvalidRef, "invalid revision %q", ref)
		}
	}

	rc, err := p.EnsureContext(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	// Get the opened revision when none was given
	if ref == "" || ref == "HEAD" {
		ref = rc.Metadata.Revision.SHA
	}

	viewer, err := p.viewerName(ctx, rc)
	if err != nil {
		return nil, err
	}

	query := remote.CommitsOptions{
		PageOptions: remote.PageOptions{Cursor: opts.Cursor, Limit: p.pageSize(opts.Limit)},
		Path:        relPath,
		Since:       opts.Since,
		Authors:     opts.Authors,
	}

	p.logger.Debug("getting log", "repo", repoPath, "ref", ref, "path", relPath, "cursor", opts.Cursor, "limit", query.Limit)

	// Fetch the first page
	page, err := rc.API.Commits(ctx, rc.Repo, ref, query)
	if err != nil {
		return nil, p.handleRemoteError(err, "failed to get log", "repo", repoPath, "ref", ref, "path", relPath)
	}

	result := &LogResult{
		RepoPath: repoPath,
		SHA:      ref,
		Path:     relPath,
		Commits:  make(map[string]*Commit, len(page.Values)),
		Limit:    query.Limit,
		provider: p,
		query:    query,
		viewer:   viewer,
	}
	result.append(page)
	return result, nil
}
