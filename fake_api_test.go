package hostedgit

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/remote"
)

// fixture is the YAML description of a hosted repository.
type fixture struct {
	Owner         string                    `yaml:"owner"`
	Name          string                    `yaml:"name"`
	DefaultBranch string                    `yaml:"defaultBranch"`
	User          *fixtureUser              `yaml:"user"`
	Commits       []fixtureCommit           `yaml:"commits"`
	Branches      []fixtureRef              `yaml:"branches"`
	Tags          []fixtureRef              `yaml:"tags"`
	Blame         map[string][]fixtureRange `yaml:"blame"`
}

type fixtureUser struct {
	Login string `yaml:"login"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type fixtureIdentity struct {
	Name  string    `yaml:"name"`
	Email string    `yaml:"email"`
	Date  time.Time `yaml:"date"`
}

type fixtureCommit struct {
	SHA       string          `yaml:"sha"`
	Parents   []string        `yaml:"parents"`
	Message   string          `yaml:"message"`
	Author    fixtureIdentity `yaml:"author"`
	Additions int             `yaml:"additions"`
	Deletions int             `yaml:"deletions"`
	Files     []string        `yaml:"files"`
}

type fixtureRef struct {
	Name    string    `yaml:"name"`
	SHA     string    `yaml:"sha"`
	Message string    `yaml:"message"`
	Date    time.Time `yaml:"date"`
}

type fixtureRange struct {
	Start  int    `yaml:"start"`
	End    int    `yaml:"end"`
	Commit string `yaml:"commit"`
}

// sha pads a fixture id to a full sha.
func sha(id string) string {
	return id + strings.Repeat("0", 40-len(id))
}

var refSuffix = regexp.MustCompile(`^(.*?)((?:[\^~][0-9]*)*)$`)

// fakeAPI serves testdata/repo.yaml through remote.API. It records every
// call and every ref it receives.
type fakeAPI struct {
	mu      sync.Mutex
	fx      fixture
	commits map[string]*fixtureCommit
	user    *remote.User

	calls     map[string]int
	refs      map[string][]string
	queries   []string
	errs      map[string]error
	blocks    map[string]chan struct{}
	overlap   bool
	pageLimit map[string][]int
}

var _ remote.API = (*fakeAPI)(nil)

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	data, err := os.ReadFile("testdata/repo.yaml")
	require.NoError(t, err, "failed to read fixture")

	var fx fixture
	require.NoError(t, yaml.Unmarshal(data, &fx), "failed to parse fixture")

	f := &fakeAPI{
		fx:        fx,
		commits:   make(map[string]*fixtureCommit),
		calls:     make(map[string]int),
		refs:      make(map[string][]string),
		errs:      make(map[string]error),
		blocks:    make(map[string]chan struct{}),
		pageLimit: make(map[string][]int),
	}
	for i := range f.fx.Commits {
		c := &f.fx.Commits[i]
		f.commits[sha(c.SHA)] = c
	}
	if fx.User != nil {
		f.user = &remote.User{Login: fx.User.Login, Name: fx.User.Name, Email: fx.User.Email}
	}
	return f
}

// record counts a call, then applies any injected block or error.
func (f *fakeAPI) record(ctx context.Context, method string, refs ...string) error {
	f.mu.Lock()
	f.calls[method]++
	f.refs[method] = append(f.refs[method], refs...)
	err := f.errs[method]
	block := f.blocks[method]
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", remote.ErrCancelled, ctx.Err())
	}
	return err
}

func (f *fakeAPI) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeAPI) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) refsFor(method string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.refs[method])
}

func (f *fakeAPI) setErr(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, method)
		return
	}
	f.errs[method] = err
}

func (f *fakeAPI) setBlock(method string, ch chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks[method] = ch
}

func notFoundErr(what string) error {
	return &remote.HTTPError{StatusCode: http.StatusNotFound, Message: what + " not found"}
}

// resolve maps a branch, tag or sha, with optional ^ and ~N suffixes, to a
// full sha.
func (f *fakeAPI) resolve(ref string) (string, bool) {
	m := refSuffix.FindStringSubmatch(ref)
	base, suffix := m[1], m[2]

	cur := ""
	switch {
	case base == "HEAD":
		base = f.fx.DefaultBranch
	}
	for _, b := range f.fx.Branches {
		if b.Name == base {
			cur = sha(b.SHA)
		}
	}
	for _, t := range f.fx.Tags {
		if cur == "" && t.Name == base {
			cur = sha(t.SHA)
		}
	}
	if cur == "" {
		if _, ok := f.commits[base]; ok {
			cur = base
		}
	}
	if cur == "" {
		return "", false
	}

	for len(suffix) > 0 {
		op := suffix[0]
		suffix = suffix[1:]
		digits := ""
		for len(suffix) > 0 && suffix[0] >= '0' && suffix[0] <= '9' {
			digits += suffix[:1]
			suffix = suffix[1:]
		}
		n := 1
		if digits != "" {
			n, _ = strconv.Atoi(digits)
		}

		c := f.commits[cur]
		switch op {
		case '^':
			if n < 1 || n > len(c.Parents) {
				return "", false
			}
			cur = sha(c.Parents[n-1])
		case '~':
			for range n {
				c = f.commits[cur]
				if len(c.Parents) == 0 {
					return "", false
				}
				cur = sha(c.Parents[0])
			}
		}
	}
	return cur, true
}

// history returns every commit reachable from start, newest first.
func (f *fakeAPI) history(start string) []*fixtureCommit {
	seen := map[string]bool{}
	var out []*fixtureCommit
	queue := []string{start}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if seen[s] {
			continue
		}
		seen[s] = true
		c := f.commits[s]
		out = append(out, c)
		for _, p := range c.Parents {
			queue = append(queue, sha(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Author.Date.After(out[j].Author.Date) })
	return out
}

func (f *fakeAPI) commit(c *fixtureCommit, withFiles bool) remote.Commit {
	id := remote.Identity{Name: c.Author.Name, Email: c.Author.Email, Date: c.Author.Date, AvatarURL: "https://avatars.example.com/" + c.Author.Email}
	rc := remote.Commit{
		SHA:          sha(c.SHA),
		Message:      c.Message,
		Author:       id,
		Committer:    id,
		Additions:    c.Additions,
		Deletions:    c.Deletions,
		ChangedFiles: len(c.Files),
	}
	for _, p := range c.Parents {
		rc.Parents = append(rc.Parents, sha(p))
	}
	if withFiles {
		rc.Files = filesOf(c)
	}
	return rc
}

func filesOf(c *fixtureCommit) []remote.File {
	var files []remote.File
	for _, name := range c.Files {
		file := remote.File{Filename: name, Status: "modified", Additions: c.Additions, Deletions: c.Deletions, Changes: c.Additions + c.Deletions}
		if strings.HasSuffix(name, ".png") {
			file.Status = "added"
		} else {
			file.Patch = "@@ -1 +1 @@\n-old\n+new"
		}
		files = append(files, file)
	}
	return files
}

// page slices values by an integer cursor. With overlap set the next cursor
// repeats the last value of the page.
func page[T any](f *fakeAPI, method string, values []T, opts remote.PageOptions) (*remote.Page[T], error) {
	start := 0
	if opts.Cursor != "" {
		n, err := strconv.Atoi(opts.Cursor)
		if err != nil || n < 0 {
			return nil, &remote.HTTPError{StatusCode: http.StatusBadRequest, Message: "bad cursor"}
		}
		start = n
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	f.mu.Lock()
	f.pageLimit[method] = append(f.pageLimit[method], limit)
	overlap := f.overlap
	f.mu.Unlock()

	start = min(start, len(values))
	end := min(start+limit, len(values))
	out := &remote.Page[T]{Values: slices.Clone(values[start:end])}
	if end < len(values) {
		next := end
		if overlap && end-1 > start {
			next = end - 1
		}
		out.Paging = &remote.Paging{Cursor: strconv.Itoa(next), More: true}
	}
	return out, nil
}

func (f *fakeAPI) Repository(ctx context.Context, repo remote.Repo) (*remote.RepositoryInfo, error) {
	if err := f.record(ctx, "Repository"); err != nil {
		return nil, err
	}
	head, _ := f.resolve(f.fx.DefaultBranch)
	return &remote.RepositoryInfo{Repo: repo, DefaultBranch: f.fx.DefaultBranch, HeadSHA: head}, nil
}

func (f *fakeAPI) Branches(ctx context.Context, _ remote.Repo, opts remote.PageOptions) (*remote.Page[remote.Branch], error) {
	if err := f.record(ctx, "Branches"); err != nil {
		return nil, err
	}
	var branches []remote.Branch
	for _, b := range f.fx.Branches {
		branches = append(branches, remote.Branch{Name: b.Name, SHA: sha(b.SHA), Date: f.commits[sha(b.SHA)].Author.Date})
	}
	return page(f, "Branches", branches, opts)
}

func (f *fakeAPI) Tags(ctx context.Context, _ remote.Repo, opts remote.PageOptions) (*remote.Page[remote.Tag], error) {
	if err := f.record(ctx, "Tags"); err != nil {
		return nil, err
	}
	var tags []remote.Tag
	for _, t := range f.fx.Tags {
		tags = append(tags, remote.Tag{
			Name:       t.Name,
			SHA:        sha(t.SHA),
			Message:    t.Message,
			Date:       t.Date,
			CommitDate: f.commits[sha(t.SHA)].Author.Date,
		})
	}
	return page(f, "Tags", tags, opts)
}

func (f *fakeAPI) Commits(ctx context.Context, _ remote.Repo, ref string, opts remote.CommitsOptions) (*remote.Page[remote.Commit], error) {
	if err := f.record(ctx, "Commits", ref); err != nil {
		return nil, err
	}
	start, ok := f.resolve(ref)
	if !ok {
		return nil, notFoundErr(ref)
	}

	var commits []remote.Commit
	for _, c := range f.history(start) {
		if opts.Path != "" && !slices.Contains(c.Files, opts.Path) {
			continue
		}
		if !opts.Since.IsZero() && c.Author.Date.Before(opts.Since) {
			continue
		}
		if len(opts.Authors) > 0 && !slices.Contains(opts.Authors, c.Author.Email) {
			continue
		}
		commits = append(commits, f.commit(c, false))
	}
	return page(f, "Commits", commits, opts.PageOptions)
}

func (f *fakeAPI) Commit(ctx context.Context, _ remote.Repo, ref string) (*remote.Commit, error) {
	if err := f.record(ctx, "Commit", ref); err != nil {
		return nil, err
	}
	s, ok := f.resolve(ref)
	if !ok {
		return nil, notFoundErr(ref)
	}
	c := f.commit(f.commits[s], true)
	return &c, nil
}

func (f *fakeAPI) Compare(ctx context.Context, _ remote.Repo, base, head string) ([]remote.File, error) {
	if err := f.record(ctx, "Compare", base, head); err != nil {
		return nil, err
	}
	b, ok := f.resolve(base)
	if !ok {
		return nil, notFoundErr(base)
	}
	h, ok := f.resolve(head)
	if !ok {
		return nil, notFoundErr(head)
	}

	inBase := map[string]bool{}
	for _, c := range f.history(b) {
		inBase[c.SHA] = true
	}
	var files []remote.File
	seen := map[string]bool{}
	for _, c := range f.history(h) {
		if inBase[c.SHA] {
			continue
		}
		for _, file := range filesOf(c) {
			if !seen[file.Filename] {
				seen[file.Filename] = true
				files = append(files, file)
			}
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return files, nil
}

func (f *fakeAPI) Blame(ctx context.Context, _ remote.Repo, ref, path string, opts remote.BlameOptions) (*remote.Blame, error) {
	if err := f.record(ctx, "Blame", ref); err != nil {
		return nil, err
	}
	resolved, ok := f.resolve(ref)
	if !ok {
		return nil, notFoundErr(ref)
	}
	ranges, ok := f.fx.Blame[path]
	if !ok {
		return nil, notFoundErr(path)
	}

	out := &remote.Blame{SHA: resolved}
	for _, r := range ranges {
		if opts.Line > 0 && (opts.Line < r.Start || opts.Line > r.End) {
			continue
		}
		out.Ranges = append(out.Ranges, remote.BlameRange{
			StartingLine: r.Start,
			EndingLine:   r.End,
			Commit:       f.commit(f.commits[sha(r.Commit)], false),
		})
	}
	return out, nil
}

func (f *fakeAPI) SearchCommits(ctx context.Context, _ remote.Repo, query string, opts remote.PageOptions) (*remote.Page[remote.SearchHit], error) {
	if err := f.record(ctx, "SearchCommits"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	head, _ := f.resolve(f.fx.DefaultBranch)
	var hits []remote.SearchHit
	for _, c := range f.history(head) {
		hits = append(hits, remote.SearchHit{SHA: sha(c.SHA), Date: c.Author.Date})
	}
	return page(f, "SearchCommits", hits, opts)
}

func (f *fakeAPI) ResolveReference(ctx context.Context, _ remote.Repo, ref, path string) (string, error) {
	if err := f.record(ctx, "ResolveReference", ref); err != nil {
		return "", err
	}
	s, ok := f.resolve(ref)
	if !ok {
		return "", notFoundErr(ref)
	}
	if path == "" {
		return s, nil
	}
	for _, c := range f.history(s) {
		if slices.Contains(c.Files, path) {
			return sha(c.SHA), nil
		}
	}
	return "", notFoundErr(path)
}

func (f *fakeAPI) CurrentUser(ctx context.Context) (*remote.User, error) {
	if err := f.record(ctx, "CurrentUser"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user == nil {
		return nil, notFoundErr("user")
	}
	u := *f.user
	return &u, nil
}
