package hostedgit

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	charmlog "github.com/charmbracelet/log"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/auth"
	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/discovery"
	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/remote"
)

const (
	testRepoPath = "vscode-vfs://github/octo/hello"
	timeout      = time.Second
	tick         = time.Millisecond
)

// fakeAuth hands out one fixed session, an error, or blocks until released.
type fakeAuth struct {
	mu       sync.Mutex
	calls    int
	requests []SessionRequest
	session  *Session
	err      error
	block    chan struct{}
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{session: &Session{
		AccessToken: "test-token",
		Account:     Account{ID: "1", Label: "octocat"},
	}}
}

func (a *fakeAuth) GetSession(ctx context.Context, req SessionRequest) (*Session, error) {
	a.mu.Lock()
	a.calls++
	a.requests = append(a.requests, req)
	session, err, block := a.session, a.err, a.block
	a.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return session, err
}

func (a *fakeAuth) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func (a *fakeAuth) lastRequest() SessionRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[len(a.requests)-1]
}

func (a *fakeAuth) set(session *Session, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session, a.err = session, err
}

// fakeBridge wraps a URIBridge with an availability switch, call counting
// and per-path metadata overrides.
type fakeBridge struct {
	inner     *URIBridge
	available atomic.Bool
	calls     atomic.Int32

	mu        sync.Mutex
	overrides map[string]*RepositoryMetadata
}

func newFakeBridge() *fakeBridge {
	b := &fakeBridge{inner: NewURIBridge(DefaultScheme), overrides: map[string]*RepositoryMetadata{}}
	b.available.Store(true)
	return b
}

func (b *fakeBridge) Available() bool {
	return b.available.Load()
}

func (b *fakeBridge) Metadata(ctx context.Context, repoPath string) (*RepositoryMetadata, error) {
	b.calls.Add(1)
	b.mu.Lock()
	md, ok := b.overrides[repoPath]
	b.mu.Unlock()
	if ok {
		cp := *md
		return &cp, nil
	}
	return b.inner.Metadata(ctx, repoPath)
}

func (b *fakeBridge) override(repoPath string, md *RepositoryMetadata) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[repoPath] = md
}

// manualClock fires discovery timers only when Advance is called.
type manualClock struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) discovery.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{f: f}
	c.pending = append(c.pending, t)
	return t
}

func (c *manualClock) Advance() int {
	c.mu.Lock()
	due := c.pending
	c.pending = nil
	c.mu.Unlock()

	fired := 0
	for _, t := range due {
		if !t.stopped {
			t.stopped = true
			t.f()
			fired++
		}
	}
	return fired
}

// testEnv is a Provider wired to fakes.
type testEnv struct {
	provider *Provider
	api      *fakeAPI
	auth     *fakeAuth
	bridge   *fakeBridge
	clock    *manualClock
	newAPIs  atomic.Int32

	mu     sync.Mutex
	events []Event
}

func newTestEnv(t *testing.T, configure ...func(*Options)) *testEnv {
	t.Helper()

	env := &testEnv{
		api:    newFakeAPI(t),
		auth:   newFakeAuth(),
		bridge: newFakeBridge(),
		clock:  &manualClock{},
	}

	opts := &Options{
		Auth:   env.auth,
		Bridge: env.bridge,
		Clock:  env.clock,
		NewAPI: func(*http.Client) (RemoteAPI, error) {
			env.newAPIs.Add(1)
			return env.api, nil
		},
		OnEvent: func(e Event) {
			env.mu.Lock()
			defer env.mu.Unlock()
			env.events = append(env.events, e)
		},
	}
	for _, fn := range configure {
		fn(opts)
	}

	p, err := New(opts)
	require.NoError(t, err, "failed to create provider")
	t.Cleanup(p.Close)

	env.provider = p
	return env
}

func (e *testEnv) Events() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Event(nil), e.events...)
}

// open resolves the test repository and fails the test on error.
func (e *testEnv) open(t *testing.T) *RepositoryContext {
	t.Helper()
	rc, err := e.provider.EnsureContext(context.Background(), testRepoPath)
	require.NoError(t, err, "failed to open repository")
	return rc
}

func shas(commits []*Commit) []string {
	out := make([]string, 0, len(commits))
	for _, c := range commits {
		out = append(out, c.SHA)
	}
	return out
}

// tokenRecorder notes the token each history and search call is sent with.
type tokenRecorder struct {
	mu     sync.Mutex
	tokens []string
}

// configure wraps NewAPI so every client reports its calls to r.
func (r *tokenRecorder) configure(o *Options) {
	inner := o.NewAPI
	o.NewAPI = func(c *http.Client) (RemoteAPI, error) {
		api, err := inner(c)
		if err != nil {
			return nil, err
		}
		return &tokenAPI{API: api, token: clientToken(c), rec: r}, nil
	}
}

func (r *tokenRecorder) record(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
}

func (r *tokenRecorder) Tokens() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tokens...)
}

func clientToken(c *http.Client) string {
	t, ok := c.Transport.(*auth.Transport)
	if !ok {
		return ""
	}
	m, ok := t.Method.(*githttp.TokenAuth)
	if !ok {
		return ""
	}
	return m.Token
}

type tokenAPI struct {
	remote.API
	token string
	rec   *tokenRecorder
}

func (a *tokenAPI) Commits(ctx context.Context, repo remote.Repo, ref string, opts remote.CommitsOptions) (*remote.Page[remote.Commit], error) {
	a.rec.record(a.token)
	return a.API.Commits(ctx, repo, ref, opts)
}

func (a *tokenAPI) SearchCommits(ctx context.Context, repo remote.Repo, query string, opts remote.PageOptions) (*remote.Page[remote.SearchHit], error) {
	a.rec.record(a.token)
	return a.API.SearchCommits(ctx, repo, query, opts)
}

func freshSession() *Session {
	return &Session{AccessToken: "fresh-token", Account: Account{ID: "1", Label: "octocat"}}
}

// captureLogs sends the provider's log output, debug included, to buf.
func captureLogs(buf *bytes.Buffer) func(*Options) {
	return func(o *Options) {
		o.Logger = slog.New(charmlog.NewWithOptions(buf, charmlog.Options{Level: charmlog.DebugLevel}))
	}
}
