package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v75/github"
)

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com/"

// maxSearchPageSize is the largest per_page the search API accepts.
const maxSearchPageSize = 100

var _ API = (*GitHub)(nil)

// GitHub implements API on top of go-github. Single-object and search calls
// use REST; listings that need real cursors (refs, history) and blame use
// GraphQL posted through the same client.
type GitHub struct {
	client     *github.Client
	graphqlURL string
	logger     *slog.Logger
}

type clientOptions struct {
	baseURL string
	logger  *slog.Logger
}

// Option configures a GitHub client.
type Option func(*clientOptions)

// WithBaseURL points the client at a GitHub Enterprise or test server.
// URLs ending in /api/v3/ get their GraphQL endpoint at /api/graphql.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// NewGitHub creates a GitHub API client. httpClient carries authentication;
// see auth.Transport.
func NewGitHub(httpClient *http.Client, opts ...Option) (*GitHub, error) {
	options := &clientOptions{
		baseURL: DefaultBaseURL,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(options)
	}

	base, err := url.Parse(options.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", options.baseURL, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	client := github.NewClient(httpClient)
	client.BaseURL = base

	return &GitHub{
		client:     client,
		graphqlURL: graphqlEndpoint(base),
		logger:     options.logger,
	}, nil
}

func graphqlEndpoint(base *url.URL) string {
	u := *base
	if strings.HasSuffix(u.Path, "/api/v3/") {
		u.Path = strings.TrimSuffix(u.Path, "v3/") + "graphql"
		return u.String()
	}
	u.Path += "graphql"
	return u.String()
}

// Commit returns one commit with its changed files.
func (g *GitHub) Commit(ctx context.Context, repo Repo, ref string) (*Commit, error) {
	g.logger.Debug("fetching commit", "repo", repo.String(), "ref", ref)

	rc, _, err := g.client.Repositories.GetCommit(ctx, repo.Owner, repo.Name, ref, nil)
	if err != nil {
		return nil, classify(ctx, err)
	}

	c := &Commit{
		SHA:          rc.GetSHA(),
		Message:      rc.GetCommit().GetMessage(),
		Author:       identityOf(rc.GetCommit().GetAuthor(), rc.GetAuthor()),
		Committer:    identityOf(rc.GetCommit().GetCommitter(), rc.GetCommitter()),
		Additions:    rc.GetStats().GetAdditions(),
		Deletions:    rc.GetStats().GetDeletions(),
		ChangedFiles: len(rc.Files),
		Files:        filesOf(rc.Files),
	}
	for _, p := range rc.Parents {
		c.Parents = append(c.Parents, p.GetSHA())
	}
	return c, nil
}

// Compare returns the files changed between base and head.
func (g *GitHub) Compare(ctx context.Context, repo Repo, base, head string) ([]File, error) {
	g.logger.Debug("comparing", "repo", repo.String(), "base", base, "head", head)

	cmp, _, err := g.client.Repositories.CompareCommits(ctx, repo.Owner, repo.Name, base, head, nil)
	if err != nil {
		return nil, classify(ctx, err)
	}
	return filesOf(cmp.Files), nil
}

// SearchCommits runs a commit search, newest committer date first. The cursor
// is the page number.
func (g *GitHub) SearchCommits(ctx context.Context, repo Repo, query string, opts PageOptions) (*Page[SearchHit], error) {
	page := 1
	if opts.Cursor != "" {
		n, err := strconv.Atoi(opts.Cursor)
		if err != nil || n < 1 {
			return nil, &HTTPError{StatusCode: http.StatusBadRequest, Message: fmt.Sprintf("invalid search cursor %q", opts.Cursor)}
		}
		page = n
	}
	limit := opts.Limit
	if limit <= 0 || limit > maxSearchPageSize {
		limit = maxSearchPageSize
	}

	g.logger.Debug("searching commits", "repo", repo.String(), "query", query, "page", page)

	res, resp, err := g.client.Search.Commits(ctx, query, &github.SearchOptions{
		Sort:  "committer-date",
		Order: "desc",
		ListOptions: github.ListOptions{
			Page:    page,
			PerPage: limit,
		},
	})
	if err != nil {
		return nil, classify(ctx, err)
	}

	out := &Page[SearchHit]{Values: make([]SearchHit, 0, len(res.Commits))}
	for _, c := range res.Commits {
		out.Values = append(out.Values, SearchHit{
			SHA:  c.GetSHA(),
			Date: c.GetCommit().GetCommitter().GetDate().Time,
		})
	}
	if resp != nil && resp.NextPage != 0 {
		out.Paging = &Paging{Cursor: strconv.Itoa(resp.NextPage), More: true}
	}
	return out, nil
}

// CurrentUser returns the authenticated account.
func (g *GitHub) CurrentUser(ctx context.Context) (*User, error) {
	u, _, err := g.client.Users.Get(ctx, "")
	if err != nil {
		return nil, classify(ctx, err)
	}
	return &User{Login: u.GetLogin(), Name: u.GetName(), Email: u.GetEmail()}, nil
}

func identityOf(ca *github.CommitAuthor, user *github.User) Identity {
	return Identity{
		Name:      ca.GetName(),
		Email:     ca.GetEmail(),
		Date:      ca.GetDate().Time,
		AvatarURL: user.GetAvatarURL(),
	}
}

func filesOf(files []*github.CommitFile) []File {
	if len(files) == 0 {
		return nil
	}
	out := make([]File, 0, len(files))
	for _, f := range files {
		out = append(out, File{
			Filename:         f.GetFilename(),
			PreviousFilename: f.GetPreviousFilename(),
			Status:           f.GetStatus(),
			Additions:        f.GetAdditions(),
			Deletions:        f.GetDeletions(),
			Changes:          f.GetChanges(),
			Patch:            f.GetPatch(),
		})
	}
	return out
}
