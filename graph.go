// Package hostedgit provides the git-data query surface over a hosting API.
// This file contains the commit graph builder.
package hostedgit

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/cache"
)

// GraphRowType distinguishes regular commits from merges.
type GraphRowType string

const (
	GraphRowCommit GraphRowType = "commit-node"
	GraphRowMerge  GraphRowType = "merge-node"
)

// GraphUpstream is the upstream of a graph head.
type GraphUpstream struct {
	Name    string
	ID      string
	Missing bool
}

// GraphHead is a local branch pointing at a row.
type GraphHead struct {
	Name          string
	ID            string
	IsCurrentHead bool
	Upstream      *GraphUpstream
}

// GraphRemoteHead is a remote branch pointing at a row.
type GraphRemoteHead struct {
	Name  string
	Owner string
	ID    string
}

// GraphTag is a tag pointing at a row.
type GraphTag struct {
	Name      string
	ID        string
	Annotated bool
}

// GraphRow is one commit of the graph.
type GraphRow struct {
	SHA         string
	Parents     []string
	Author      string
	Email       string
	AvatarURL   string
	Date        time.Time
	Message     string
	Type        GraphRowType
	Kind        string
	Heads       []GraphHead
	RemoteHeads []GraphRemoteHead
	Tags        []GraphTag

	// Context is an opaque payload identifying the row for callers that act
	// on it.
	Context json.RawMessage
}

// Remote is a remote of the graph. Hosted repositories have exactly one.
type Remote struct {
	Name  string
	Owner string
	Repo  string
}

type rowContext struct {
	RepoPath string `json:"repoPath"`
	SHA      string `json:"sha"`
	Type     string `json:"type"`
}

// GraphResult is one page of graph rows. Branches, Remotes, Downstreams and
// IDs accumulate across pages; Rows holds only the rows of this page.
type GraphResult struct {
	// ID identifies the page chain.
	ID          string
	RepoPath    string
	SHA         string
	Rows        []GraphRow
	Branches    map[string]*Branch
	Remotes     map[string]*Remote
	Downstreams map[string][]string
	IDs         map[string]struct{}
	HasMore     bool
	Cursor      string

	provider   *Provider
	log        *LogResult
	head       *Branch
	remoteTips map[string][]Branch
	tagTips    map[string][]Tag
	stats      *cache.Memo[*CommitStats]
}

// GetCommitsForGraph returns the first page of graph rows for the revision
// the repository is opened at. Branches, tags, the current user and the
// first page of history are fetched concurrently.
func (p *Provider) GetCommitsForGraph(ctx context.Context, repoPath string, limit int) (*GraphResult, error) {
	rc, err := p.EnsureContext(ctx, repoPath)
	if err != nil {
		return nil, err
	}

	var (
		head     *Branch
		branches []Branch
		tags     []Tag
		log      *LogResult
	)

	// Fetch the refs, the viewer and the first page of history together
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		head, err = p.GetBranch(gctx, repoPath)
		return err
	})
	g.Go(func() error {
		var err error
		branches, err = p.GetBranches(gctx, repoPath)
		return err
	})
	g.Go(func() error {
		var err error
		tags, err = p.GetTags(gctx, repoPath)
		return err
	})
	g.Go(func() error {
		_, err := p.currentUser(gctx, rc)
		return err
	})
	g.Go(func() error {
		var err error
		log, err = p.GetLog(gctx, repoPath, LogOptions{Limit: limit})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if log == nil {
		return nil, nil
	}

	result := &GraphResult{
		ID:       uuid.NewString(),
		RepoPath: repoPath,
		SHA:      log.SHA,
		Branches: make(map[string]*Branch, len(branches)),
		Remotes: map[string]*Remote{
			DefaultRemoteName: {Name: DefaultRemoteName, Owner: rc.Repo.Owner, Repo: rc.Repo.Name},
		},
		Downstreams: make(map[string][]string),
		IDs:         make(map[string]struct{}),
		provider:    p,
		head:        head,
		remoteTips:  make(map[string][]Branch),
		tagTips:     make(map[string][]Tag),
		stats:       cache.NewMemo[*CommitStats](),
	}

	// Index ref tips by sha so each row finds its labels directly
	for i := range branches {
		b := &branches[i]
		result.Branches[b.Name] = b
		if b.Remote {
			result.remoteTips[b.SHA] = append(result.remoteTips[b.SHA], *b)
		}
	}
	for _, t := range tags {
		result.tagTips[t.SHA] = append(result.tagTips[t.SHA], t)
	}
	// Record the current branch as a downstream of its upstream
	if head != nil && !head.Detached && head.Upstream != nil {
		result.Downstreams[head.Upstream.Name] = append(result.Downstreams[head.Upstream.Name], head.Name)
	}

	p.logger.Debug("building graph", "repo", repoPath, "graph", result.ID, "commits", len(log.Order))

	result.log = log
	result.HasMore = log.HasMore
	result.Cursor = log.Cursor
	result.Rows = result.buildRows(log, log.Order)
	return result, nil
}

// More returns the next page of rows. Branch, tag and remote maps and the
// known IDs are carried forward; nothing but history is fetched.
func (r *GraphResult) More(ctx context.Context, limit int) (*GraphResult, error) {
	if !r.HasMore || r.log == nil {
		return r.next(r.log, nil), nil
	}

	log, err := r.log.More(ctx, limit)
	if err != nil {
		return nil, err
	}

	r.provider.logger.Debug("continuing graph", "repo", r.RepoPath, "graph", r.ID, "cursor", r.Cursor)

	// Only the shas appended by this page become rows
	added := log.Order[len(r.log.Order):]
	next := r.next(log, nil)
	next.Rows = next.buildRows(log, added)
	return next, nil
}

// RowStats returns the change totals of a row's commit, fetching them on
// first use.
func (r *GraphResult) RowStats(ctx context.Context, sha string) (*CommitStats, error) {
	if r.log != nil {
		if c, ok := r.log.Commits[sha]; ok && c.Stats != nil {
			return c.Stats, nil
		}
	}
	stats, err := r.stats.Do(ctx, sha, func(ctx context.Context) (*CommitStats, error) {
		c, err := r.provider.GetCommit(ctx, r.RepoPath, sha)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, errNoResult
		}
		if c.Stats == nil {
			return &CommitStats{}, nil
		}
		return c.Stats, nil
	})
	if errors.Is(err, errNoResult) {
		return nil, nil
	}
	return stats, err
}

func (r *GraphResult) next(log *LogResult, rows []GraphRow) *GraphResult {
	next := *r
	next.Rows = rows
	next.IDs = maps.Clone(r.IDs)
	next.log = log
	if log != nil {
		next.HasMore = log.HasMore
		next.Cursor = log.Cursor
	} else {
		next.HasMore = false
		next.Cursor = ""
	}
	return &next
}

func (r *GraphResult) buildRows(log *LogResult, shas []string) []GraphRow {
	rows := make([]GraphRow, 0, len(shas))
	for _, sha := range shas {
		if _, seen := r.IDs[sha]; seen {
			continue
		}
		r.IDs[sha] = struct{}{}
		rows = append(rows, r.row(log.Commits[sha]))
	}
	return rows
}

func (r *GraphResult) row(c *Commit) GraphRow {
	row := GraphRow{
		SHA:       c.SHA,
		Parents:   c.Parents,
		Author:    c.Author.Name,
		Email:     c.Author.Email,
		AvatarURL: c.AvatarURL,
		Date:      c.Committer.When,
		Message:   c.Message,
		Type:      GraphRowCommit,
		Kind:      c.Kind(),
	}
	if c.IsMerge() {
		row.Type = GraphRowMerge
	}

	// The current branch is labelled on the commit the graph was opened at
	remoteSeen := make(map[string]bool)
	if r.head != nil && !r.head.Detached && c.SHA == r.SHA {
		h := GraphHead{Name: r.head.Name, ID: r.head.ID(), IsCurrentHead: true}
		if up := r.head.Upstream; up != nil {
			upRef := plumbing.ReferenceName("refs/remotes/" + up.Name)
			h.Upstream = &GraphUpstream{Name: up.Name, ID: refID(r.RepoPath, upRef), Missing: up.Missing}
			if !up.Missing {
				row.RemoteHeads = append(row.RemoteHeads, GraphRemoteHead{
					Name:  r.head.Name,
					Owner: DefaultRemoteName,
					ID:    refID(r.RepoPath, upRef),
				})
				remoteSeen[up.Name] = true
			}
		}
		row.Heads = append(row.Heads, h)
	}

	// Remote branches, skipping the upstream already shown with the head
	for _, b := range r.remoteTips[c.SHA] {
		if remoteSeen[b.Name] {
			continue
		}
		row.RemoteHeads = append(row.RemoteHeads, GraphRemoteHead{
			Name:  strings.TrimPrefix(b.Name, DefaultRemoteName+"/"),
			Owner: DefaultRemoteName,
			ID:    b.ID(),
		})
	}
	for _, t := range r.tagTips[c.SHA] {
		row.Tags = append(row.Tags, GraphTag{Name: t.Name, ID: t.ID(), Annotated: t.Message != ""})
	}

	// Encode the row context
	payload, err := json.Marshal(rowContext{RepoPath: r.RepoPath, SHA: c.SHA, Type: string(row.Type)})
	if err == nil {
		row.Context = payload
	}
	return row
}
