// Package hostedgit exposes the git-data query surface of a local git client
// (branches, tags, commits, logs, diffs, blame, search and commit graphs)
// with every value sourced from a hosting API instead of a working copy.
package hostedgit

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/auth"
	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/cache"
	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/discovery"
	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/remote"
)

const (
	// DefaultScheme is the URI scheme of hosted repository paths.
	DefaultScheme = "vscode-vfs"

	// DefaultAuthority is the URI authority of hosted repository paths.
	DefaultAuthority = "github"

	// DefaultPageSize is the page size used when a limit is not given.
	DefaultPageSize = 100

	// MaxPageSize is the largest page the remote returns.
	MaxPageSize = 100

	// DefaultLimit asks for the configured default page size.
	DefaultLimit = -1

	// DefaultRemoteName is the synthetic remote every remote branch is
	// reported under.
	DefaultRemoteName = "origin"

	// YouLabel replaces the viewer's own name in identities.
	YouLabel = "You"

	// DefaultDiscoveryInterval is the delay between bridge availability checks.
	DefaultDiscoveryInterval = 500 * time.Millisecond

	// DefaultDiscoveryAttempts bounds bridge availability checks.
	DefaultDiscoveryAttempts = 20

	// DefaultHTTPTimeout is the timeout of the default HTTP client.
	DefaultHTTPTimeout = 30 * time.Second
)

// DefaultScopes are the OAuth scopes requested for sessions.
var DefaultScopes = []string{"repo", "read:user", "user:email"}

// RevisionType is the kind of revision a repository path is opened at.
type RevisionType int

const (
	RevisionBranch RevisionType = iota
	RevisionRemoteBranch
	RevisionTag
	RevisionCommit
)

func (t RevisionType) String() string {
	switch t {
	case RevisionBranch:
		return "branch"
	case RevisionRemoteBranch:
		return "remote-branch"
	case RevisionTag:
		return "tag"
	case RevisionCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// RevisionMetadata describes the revision a repository is opened at.
// An empty SHA is filled in from the remote when the context is resolved.
type RevisionMetadata struct {
	Type RevisionType
	Name string
	SHA  string
}

// RepositoryMetadata identifies a hosted repository and its current revision.
type RepositoryMetadata struct {
	Owner    string
	Name     string
	Revision RevisionMetadata
}

// Repo returns the owner/name pair used for remote calls.
func (m *RepositoryMetadata) Repo() remote.Repo {
	return remote.Repo{Owner: m.Owner, Name: m.Name}
}

// RepositoryBridge resolves repository paths to hosted repositories. The
// bridge may register after the provider starts; Available reports whether
// it has.
type RepositoryBridge interface {
	Available() bool
	Metadata(ctx context.Context, repoPath string) (*RepositoryMetadata, error)
}

// Options configures a Provider.
type Options struct {
	// Auth is the REQUIRED session provider.
	Auth AuthProvider

	// Bridge resolves repository paths. Defaults to a URIBridge for Scheme.
	Bridge RepositoryBridge

	// Scheme is the URI scheme of repository paths this provider serves.
	// Defaults to DefaultScheme.
	Scheme string

	// Scopes are requested for sessions. Defaults to DefaultScopes.
	Scopes []string

	// HTTPClient is the base client for API calls. Session credentials are
	// layered on top of its transport. Defaults to a client with
	// DefaultHTTPTimeout.
	HTTPClient *http.Client

	// BaseURL is the REST API root. Defaults to the public GitHub API.
	BaseURL string

	// NewAPI builds the remote client from an authenticated HTTP client.
	// Defaults to the GitHub client.
	NewAPI func(httpClient *http.Client) (RemoteAPI, error)

	// DefaultPageSize is used when a caller passes DefaultLimit.
	DefaultPageSize int

	// MaxPageSize clamps every page request. A limit of 0 means this size.
	MaxPageSize int

	// Logger receives debug traces and swallowed remote failures.
	// Defaults to a discard logger.
	Logger *slog.Logger

	// Clock drives bridge discovery. Defaults to the wall clock.
	Clock discovery.Clock

	// DiscoveryInterval is the delay between bridge availability checks.
	DiscoveryInterval time.Duration

	// DiscoveryAttempts bounds bridge availability checks.
	DiscoveryAttempts int

	// OnEvent, if set, is called synchronously for every Event.
	OnEvent func(Event)
}

// Validate checks that the Options are properly configured.
func (o *Options) Validate() error {
	if o.Auth == nil {
		return WrapError(ErrInvalidOptions, "Auth is required")
	}
	if o.DefaultPageSize < 0 {
		return WrapError(ErrInvalidOptions, "DefaultPageSize cannot be negative")
	}
	if o.MaxPageSize < 0 {
		return WrapError(ErrInvalidOptions, "MaxPageSize cannot be negative")
	}
	if o.MaxPageSize > 0 && o.DefaultPageSize > o.MaxPageSize {
		return WrapError(ErrInvalidOptions, "DefaultPageSize cannot exceed MaxPageSize")
	}
	if o.DiscoveryInterval < 0 {
		return WrapError(ErrInvalidOptions, "DiscoveryInterval cannot be negative")
	}
	if o.BaseURL != "" {
		if u, err := url.Parse(o.BaseURL); err != nil || u.Host == "" {
			return WrapErrorf(ErrInvalidOptions, "BaseURL %q is not an absolute URL", o.BaseURL)
		}
	}
	return nil
}

// applyDefaults sets default values for any unset fields in Options.
func (o *Options) applyDefaults() {
	if o.Scheme == "" {
		o.Scheme = DefaultScheme
	}
	if o.Bridge == nil {
		o.Bridge = NewURIBridge(o.Scheme)
	}
	if len(o.Scopes) == 0 {
		o.Scopes = DefaultScopes
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if o.BaseURL == "" {
		o.BaseURL = remote.DefaultBaseURL
	}
	if o.MaxPageSize == 0 {
		o.MaxPageSize = MaxPageSize
	}
	if o.DefaultPageSize == 0 {
		o.DefaultPageSize = min(DefaultPageSize, o.MaxPageSize)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Clock == nil {
		o.Clock = discovery.RealClock{}
	}
	if o.DiscoveryInterval == 0 {
		o.DiscoveryInterval = DefaultDiscoveryInterval
	}
	if o.DiscoveryAttempts == 0 {
		o.DiscoveryAttempts = DefaultDiscoveryAttempts
	}
	if o.NewAPI == nil {
		baseURL, logger := o.BaseURL, o.Logger
		o.NewAPI = func(httpClient *http.Client) (RemoteAPI, error) {
			return remote.NewGitHub(httpClient, remote.WithBaseURL(baseURL), remote.WithLogger(logger))
		}
	}
}

// Provider serves git data for hosted repositories. It is safe for
// concurrent use.
type Provider struct {
	opts   Options
	logger *slog.Logger
	host   string

	sessions *cache.Memo[*auth.Session]
	contexts *cache.Memo[*RepositoryContext]
	caches   *repoCaches
	blames   *cache.Memo[*BlameResult]
	fileLogs *cache.Memo[*LogResult]

	// skipPrompt is set when the user declines consent and cleared by
	// Reconnect.
	skipPrompt atomic.Bool
	// forceNew requests a fresh session on the next session fetch.
	forceNew atomic.Bool

	poller *discovery.Poller
}

// New creates a Provider.
func New(opts *Options) (*Provider, error) {
	if opts == nil {
		return nil, WrapError(ErrInvalidOptions, "options are required")
	}
	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid options")
	}

	o := *opts
	o.applyDefaults()

	host := ""
	if u, err := url.Parse(o.BaseURL); err == nil {
		host = u.Hostname()
	}

	return &Provider{
		opts:     o,
		logger:   o.Logger,
		host:     host,
		sessions: cache.NewMemo[*auth.Session](),
		contexts: cache.NewMemo[*RepositoryContext](),
		caches:   newRepoCaches(),
		blames:   cache.NewMemo[*BlameResult](),
		fileLogs: cache.NewMemo[*LogResult](),
		poller:   discovery.NewPoller(o.Clock, o.DiscoveryInterval, o.DiscoveryAttempts),
	}, nil
}

// Close stops bridge discovery and drops every cache.
func (p *Provider) Close() {
	p.poller.Stop()
	p.sessions.Clear()
	p.contexts.Clear()
	p.caches.invalidateAll()
	p.blames.Clear()
	p.fileLogs.Clear()
}

// pageSize applies the DefaultLimit and zero-means-max conventions.
func (p *Provider) pageSize(limit int) int {
	switch {
	case limit < 0:
		return p.opts.DefaultPageSize
	case limit == 0 || limit > p.opts.MaxPageSize:
		return p.opts.MaxPageSize
	default:
		return limit
	}
}
