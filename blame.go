// Package hostedgit provides the git-data query surface over a hosting API.
// This file contains blame reconstruction from remote line ranges.
package hostedgit

import (
	"context"
	"errors"
	"slices"
	"sort"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/remote"
	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/revision"
)

// keySep separates the parts of document cache keys. It cannot appear in a
// repository path or a ref.
const keySep = "\x00"

// DocumentURI addresses a file of a repository at a revision. An empty Ref,
// or one of the uncommitted sentinels, means the opened revision.
type DocumentURI struct {
	RepoPath string
	Path     string
	Ref      string
}

func (u DocumentURI) key() string {
	return u.RepoPath + keySep + u.Path + keySep + u.Ref
}

// BlameAuthor is an author and the number of blamed lines attributed to them.
type BlameAuthor struct {
	Name      string
	LineCount int
}

// BlameLine attributes one line. Line and OriginalLine are 0-based.
type BlameLine struct {
	SHA          string
	PreviousSHA  string
	Line         int
	OriginalLine int
}

// BlameResult is the blame of a file. Lines has one entry per line of the
// file at SHA, and every line's sha is a key of Commits. Authors is sorted
// by line count, highest first, ties broken by name.
type BlameResult struct {
	RepoPath string
	Path     string
	SHA      string
	Authors  []BlameAuthor
	Commits  map[string]*Commit
	Lines    []BlameLine
}

// BlameLineOptions controls GetBlameForLine.
type BlameLineOptions struct {
	// ForceSingleLine asks the remote for the one line only, bypassing the
	// whole-file blame and its cache.
	ForceSingleLine bool
}

// BlameLineResult is the blame of one line.
type BlameLineResult struct {
	Author BlameAuthor
	Commit *Commit
	Line   BlameLine
}

// GetBlame returns the blame of uri. The result is cached per document until
// the document, or its repository, is invalidated.
//
// Remote failures are logged and yield nil.
func (p *Provider) GetBlame(ctx context.Context, uri DocumentURI) (*BlameResult, error) {
	if uri.Path == "" {
		return nil, WrapError(ErrInvalidRef, "file path cannot be empty")
	}

	blame, err := p.blames.Do(ctx, uri.key(), func(ctx context.Context) (*BlameResult, error) {
		blame, err := p.fetchBlame(ctx, uri, 0)
		if err == nil && blame == nil {
			return nil, errNoResult
		}
		return blame, err
	})
	if errors.Is(err, errNoResult) {
		return nil, nil
	}
	return blame, err
}

// GetBlameForLine returns the blame of the 0-based line of uri, or nil when
// the line is past the end of the file.
func (p *Provider) GetBlameForLine(ctx context.Context, uri DocumentURI, line int, opts BlameLineOptions) (*BlameLineResult, error) {
	if line < 0 {
		return nil, WrapErrorf(ErrInvalidRef, "invalid line %d", line)
	}

	var bl BlameLine
	var blame *BlameResult
	var err error
	if opts.ForceSingleLine {
		// Only the range holding the line comes back, so search it.
		blame, err = p.fetchBlame(ctx, uri, line+1)
		if err != nil || blame == nil {
			return nil, err
		}
		idx := slices.IndexFunc(blame.Lines, func(l BlameLine) bool { return l.Line == line })
		if idx < 0 {
			return nil, nil
		}
		bl = blame.Lines[idx]
	} else {
		// Whole-file Lines are indexed by line number.
		blame, err = p.GetBlame(ctx, uri)
		if err != nil || blame == nil {
			return nil, err
		}
		if line >= len(blame.Lines) {
			return nil, nil
		}
		bl = blame.Lines[line]
	}
	commit := blame.Commits[bl.SHA]

	author := BlameAuthor{Name: commit.Author.Name}
	for _, a := range blame.Authors {
		if a.Name == author.Name {
			author = a
			break
		}
	}
	return &BlameLineResult{Author: author, Commit: commit, Line: bl}, nil
}

// GetBlameForRange returns the blame of uri restricted to the 0-based
// inclusive line span [start, end].
func (p *Provider) GetBlameForRange(ctx context.Context, uri DocumentURI, start, end int) (*BlameResult, error) {
	blame, err := p.GetBlame(ctx, uri)
	if err != nil || blame == nil {
		return nil, err
	}
	return GetBlameRange(blame, start, end), nil
}

// GetBlameRange restricts blame to the 0-based inclusive line span
// [start, end]. Author counts are recomputed from the sliced lines and
// commits keep only their lines within the span. The span is clamped to the
// file; an empty span yields a result with no lines.
func GetBlameRange(blame *BlameResult, start, end int) *BlameResult {
	if blame == nil {
		return nil
	}
	start = max(start, 0)
	end = min(end, len(blame.Lines)-1)

	out := &BlameResult{
		RepoPath: blame.RepoPath,
		Path:     blame.Path,
		SHA:      blame.SHA,
		Commits:  make(map[string]*Commit),
	}
	if start > end {
		out.Authors = []BlameAuthor{}
		return out
	}

	out.Lines = slices.Clone(blame.Lines[start : end+1])
	for _, l := range out.Lines {
		c, ok := out.Commits[l.SHA]
		if !ok {
			orig := blame.Commits[l.SHA]
			copied := *orig
			copied.Lines = nil
			c = &copied
			out.Commits[l.SHA] = c
		}
		c.Lines = append(c.Lines, l)
	}
	out.Authors = countAuthors(out.Lines, out.Commits)
	return out
}

// fetchBlame asks the remote for the blame of uri. A positive line narrows
// the request to the range containing that 1-based line.
func (p *Provider) fetchBlame(ctx context.Context, uri DocumentURI, line int) (*BlameResult, error) {
	rc, err := p.EnsureContext(ctx, uri.RepoPath)
	if err != nil {
		return nil, err
	}

	ref := uri.Ref
	if ref == "" || ref == "HEAD" || revision.IsUncommitted(ref) {
		ref = rc.Metadata.Revision.SHA
	}
	if revision.IsRange(ref) || revision.IsDeletedOrMissing(ref) {
		return nil, WrapErrorf(ErrInvalidRef, "cannot blame at %s", ref)
	}

	viewer, err := p.viewerName(ctx, rc)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("getting blame", "repo", uri.RepoPath, "path", uri.Path, "ref", ref, "line", line)

	rb, err := rc.API.Blame(ctx, rc.Repo, ref, uri.Path, remote.BlameOptions{Line: line})
	if err != nil {
		return nil, p.handleRemoteError(err, "failed to get blame", "repo", uri.RepoPath, "path", uri.Path, "ref", ref)
	}
	sha := rb.SHA
	if sha == "" {
		sha = ref
	}
	return newBlameResult(uri.RepoPath, uri.Path, sha, rb.Ranges, viewer), nil
}

// newBlameResult expands remote line ranges into one BlameLine per line.
// sha is the commit the blamed revision resolved to.
func newBlameResult(repoPath, path, sha string, ranges []remote.BlameRange, viewer string) *BlameResult {
	result := &BlameResult{
		RepoPath: repoPath,
		Path:     path,
		SHA:      sha,
		Commits:  make(map[string]*Commit),
	}

	for i := range ranges {
		r := &ranges[i]
		// Several ranges can share one commit; build it once.
		c, ok := result.Commits[r.Commit.SHA]
		if !ok {
			c = newCommit(repoPath, &r.Commit, viewer)
			result.Commits[c.SHA] = c
		}

		// The first parent is where the lines came from before this commit.
		previous := ""
		if len(r.Commit.Parents) > 0 {
			previous = r.Commit.Parents[0]
		}
		for n := r.StartingLine; n <= r.EndingLine; n++ {
			bl := BlameLine{SHA: c.SHA, PreviousSHA: previous, Line: n - 1, OriginalLine: n - 1}
			c.Lines = append(c.Lines, bl)
			result.Lines = append(result.Lines, bl)
		}
	}

	// Ranges arrive grouped by commit, not by line.
	sort.SliceStable(result.Lines, func(i, j int) bool { return result.Lines[i].Line < result.Lines[j].Line })
	result.Authors = countAuthors(result.Lines, result.Commits)
	return result
}

// countAuthors tallies lines per author name, highest count first.
func countAuthors(lines []BlameLine, commits map[string]*Commit) []BlameAuthor {
	counts := make(map[string]int)
	for _, l := range lines {
		counts[commits[l.SHA].Author.Name]++
	}

	authors := make([]BlameAuthor, 0, len(counts))
	for name, n := range counts {
		authors = append(authors, BlameAuthor{Name: name, LineCount: n})
	}
	sort.Slice(authors, func(i, j int) bool {
		if authors[i].LineCount != authors[j].LineCount {
			return authors[i].LineCount > authors[j].LineCount
		}
		return authors[i].Name < authors[j].Name
	})
	return authors
}
