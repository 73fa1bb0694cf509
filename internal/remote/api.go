// Package remote is the typed client for the hosting API. Every list call is
// cursor-paged; errors are returned uninterpreted as *HTTPError or
// ErrCancelled so callers decide what a failure means.
package remote

import (
	"context"
	"time"
)

// Repo identifies a hosted repository.
type Repo struct {
	Owner string
	Name  string
}

// String returns "owner/name".
func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// PageOptions selects one page of a list call.
type PageOptions struct {
	// Cursor is the opaque position returned by the previous page. Empty
	// means the first page.
	Cursor string

	// Limit is the page size. Zero lets the server pick.
	Limit int
}

// Paging describes how to continue a list call.
type Paging struct {
	Cursor string
	More   bool
}

// Page is one page of results.
type Page[T any] struct {
	Values []T
	Paging *Paging
}

// HasMore reports whether another page can be requested.
func (p *Page[T]) HasMore() bool {
	return p != nil && p.Paging != nil && p.Paging.More
}

// Identity is an author or committer as reported by the API.
type Identity struct {
	Name      string
	Email     string
	Date      time.Time
	AvatarURL string
}

// Branch is a branch tip.
type Branch struct {
	Name string
	SHA  string
	Date time.Time
}

// Tag is a tag, peeled to the commit it points at.
type Tag struct {
	Name       string
	SHA        string
	Message    string
	Date       time.Time
	CommitDate time.Time
}

// File is one changed file of a commit or comparison.
type File struct {
	Filename         string
	PreviousFilename string
	// Status is one of added, removed, modified, renamed, copied, changed
	// or unchanged.
	Status    string
	Additions int
	Deletions int
	Changes   int
	Patch     string
}

// Commit is a commit with whatever detail the originating call supplied.
// Files is only populated by single-commit lookups.
type Commit struct {
	SHA          string
	Parents      []string
	Message      string
	Author       Identity
	Committer    Identity
	Additions    int
	Deletions    int
	ChangedFiles int
	Files        []File
}

// CommitsOptions filters a history listing.
type CommitsOptions struct {
	PageOptions

	// Path restricts history to commits touching this repository-relative
	// path.
	Path string

	// Since excludes commits older than this time when non-zero.
	Since time.Time

	// Authors restricts history to these author emails.
	Authors []string
}

// BlameRange attributes the 1-based inclusive line span to a commit.
type BlameRange struct {
	StartingLine int
	EndingLine   int
	Commit       Commit
}

// Blame is the line attribution of a file at a revision. SHA is the commit
// the revision resolved to.
type Blame struct {
	SHA    string
	Ranges []BlameRange
}

// BlameOptions narrows a blame request.
type BlameOptions struct {
	// Line, when positive, returns only the range containing this 1-based
	// line.
	Line int
}

// SearchHit is one commit search result.
type SearchHit struct {
	SHA  string
	Date time.Time
}

// User is the authenticated account.
type User struct {
	Login string
	Name  string
	Email string
}

// RepositoryInfo describes a repository's default branch.
type RepositoryInfo struct {
	Repo
	DefaultBranch string
	HeadSHA       string
}

// API is the set of remote calls the provider makes. Implementations must be
// safe for concurrent use and must return ErrCancelled when ctx is done.
type API interface {
	Repository(ctx context.Context, repo Repo) (*RepositoryInfo, error)
	Branches(ctx context.Context, repo Repo, opts PageOptions) (*Page[Branch], error)
	Tags(ctx context.Context, repo Repo, opts PageOptions) (*Page[Tag], error)
	Commits(ctx context.Context, repo Repo, ref string, opts CommitsOptions) (*Page[Commit], error)
	Commit(ctx context.Context, repo Repo, ref string) (*Commit, error)
	Compare(ctx context.Context, repo Repo, base, head string) ([]File, error)
	Blame(ctx context.Context, repo Repo, ref, path string, opts BlameOptions) (*Blame, error)
	SearchCommits(ctx context.Context, repo Repo, query string, opts PageOptions) (*Page[SearchHit], error)
	ResolveReference(ctx context.Context, repo Repo, ref, path string) (string, error)
	CurrentUser(ctx context.Context) (*User, error)
}
