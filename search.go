// Package hostedgit provides the git-data query surface over a hosting API.
// This file contains commit search.
package hostedgit

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/remote"
	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/search"
)

// SearchOptions selects a page of search results.
type SearchOptions struct {
	Limit  int
	Cursor string
}

// SearchHit is a matching commit.
type SearchHit struct {
	SHA  string
	Date time.Time
}

// SearchResult is one page of search hits, newest first.
type SearchResult struct {
	Query   string
	Hits    []SearchHit
	HasMore bool
	Cursor  string

	provider *Provider
	repoPath string
	remoteQ  string
}

// More returns the next page of hits. When there is nothing more, the
// receiver is returned.
func (r *SearchResult) More(ctx context.Context, limit int) (*SearchResult, error) {
	if !r.HasMore || r.provider == nil {
		return r, nil
	}

	// Resolve again so a session change applies to later pages.
	rc, err := r.provider.EnsureContext(ctx, r.repoPath)
	if err != nil {
		return nil, err
	}
	return r.provider.runSearch(ctx, rc, r.Query, r.remoteQ, SearchOptions{Limit: limit, Cursor: r.Cursor})
}

// SearchCommits searches the history of a repository.
//
// The query understands commit: (#:), message: (=:) and author: (@:)
// operators; bare words are message terms and double quotes group words.
// commit: values are looked up directly and bypass search. An author of
// @me means the signed-in user. A query with no usable terms returns an
// empty result without any request.
func (p *Provider) SearchCommits(ctx context.Context, repoPath, query string, opts SearchOptions) (*SearchResult, error) {
	q := search.Parse(query)
	if len(q.Unsupported) > 0 {
		ops := slices.Sorted(maps.Keys(q.Unsupported))
		p.logger.Debug("ignoring search operators the remote cannot search on", "query", query, "operators", ops)
	}
	if q.Empty() {
		p.logger.Debug("search query has no usable terms", "query", query)
		return &SearchResult{Query: query, Hits: []SearchHit{}}, nil
	}

	rc, err := p.EnsureContext(ctx, repoPath)
	if err != nil {
		return nil, err
	}

	if len(q.Commits) > 0 {
		return p.lookupCommits(ctx, rc, query, q.Commits)
	}

	login := ""
	if slices.Contains(q.Authors, search.Me) {
		user, err := p.currentUser(ctx, rc)
		if err != nil {
			return nil, err
		}
		if user != nil {
			login = user.Login
		}
	}

	terms := q.Translate(login)
	if terms == "" {
		return &SearchResult{Query: query, Hits: []SearchHit{}}, nil
	}
	return p.runSearch(ctx, rc, query, "repo:"+rc.Repo.String()+" "+terms, opts)
}

func (p *Provider) runSearch(ctx context.Context, rc *RepositoryContext, query, remoteQuery string, opts SearchOptions) (*SearchResult, error) {
	limit := p.pageSize(opts.Limit)
	page, err := rc.API.SearchCommits(ctx, rc.Repo, remoteQuery, remote.PageOptions{Cursor: opts.Cursor, Limit: limit})
	if err != nil {
		if err := p.handleRemoteError(err, "failed to search commits", "repo", rc.RepoPath, "query", remoteQuery); err != nil {
			return nil, err
		}
		return &SearchResult{Query: query, Hits: []SearchHit{}}, nil
	}

	result := &SearchResult{
		Query:    query,
		Hits:     make([]SearchHit, 0, len(page.Values)),
		HasMore:  page.HasMore(),
		provider: p,
		repoPath: rc.RepoPath,
		remoteQ:  remoteQuery,
	}
	if result.HasMore {
		result.Cursor = page.Paging.Cursor
	}
	for _, h := range page.Values {
		result.Hits = append(result.Hits, SearchHit{SHA: h.SHA, Date: h.Date})
	}
	return result, nil
}

// lookupCommits resolves commit: values one by one. Values that do not name
// a commit are skipped.
func (p *Provider) lookupCommits(ctx context.Context, rc *RepositoryContext, query string, refs []string) (*SearchResult, error) {
	result := &SearchResult{Query: query, Hits: []SearchHit{}}
	seen := make(map[string]bool)
	for _, ref := range refs {
		c, err := rc.API.Commit(ctx, rc.Repo, ref)
		if err != nil {
			if err := p.handleRemoteError(err, "failed to look up commit", "repo", rc.RepoPath, "ref", ref); err != nil {
				return nil, err
			}
			continue
		}
		if seen[c.SHA] {
			continue
		}
		seen[c.SHA] = true
		result.Hits = append(result.Hits, SearchHit{SHA: c.SHA, Date: c.Committer.Date})
	}
	return result, nil
}
