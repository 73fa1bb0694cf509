// Package hostedgit provides the git-data query surface over a hosting API.
// This file contains tag listing and tag filters.
package hostedgit

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/remote"
)

// Tag is a tag peeled to its commit. Message and Date are only set for
// annotated tags.
type Tag struct {
	RepoPath   string
	Name       string
	SHA        string
	Message    string
	Date       time.Time
	CommitDate time.Time
}

// RefName returns refs/tags/<name>.
func (t *Tag) RefName() plumbing.ReferenceName {
	return plumbing.NewTagReferenceName(t.Name)
}

// ID returns the identifier of the tag within its repository.
func (t *Tag) ID() string {
	return refID(t.RepoPath, t.RefName())
}

// TagFilter is a predicate function for filtering tags.
// It returns true if the tag should be included in the results.
// Filters are applied progressively - if any filter returns false, the tag is excluded.
type TagFilter func(Tag) bool

// TagPatternFilter keeps tags whose name matches a glob pattern such as "v1.*".
func TagPatternFilter(pattern string) TagFilter {
	return func(t Tag) bool {
		matched, err := path.Match(pattern, t.Name)
		return err == nil && matched
	}
}

// TagPrefixFilter keeps tags whose name starts with prefix.
func TagPrefixFilter(prefix string) TagFilter {
	return func(t Tag) bool { return strings.HasPrefix(t.Name, prefix) }
}

// TagSuffixFilter keeps tags whose name ends with suffix.
func TagSuffixFilter(suffix string) TagFilter {
	return func(t Tag) bool { return strings.HasSuffix(t.Name, suffix) }
}

// TagExcludeFilter drops tags matching a glob pattern.
func TagExcludeFilter(pattern string) TagFilter {
	match := TagPatternFilter(pattern)
	return func(t Tag) bool { return !match(t) }
}

// GetTags returns the tags that pass all the provided filters, newest
// version first. Tags that parse as semantic versions sort before those that
// do not; the rest are ordered by commit date, newest first.
//
// Remote failures are logged and yield an empty list.
func (p *Provider) GetTags(ctx context.Context, repoPath string, filters ...TagFilter) ([]Tag, error) {
	rc, err := p.EnsureContext(ctx, repoPath)
	if err != nil {
		return nil, err
	}

	remoteTags, err := p.remoteTags(ctx, rc)
	if err != nil {
		return nil, err
	}

	var tags []Tag
	for _, rt := range remoteTags {
		tag := Tag{
			RepoPath:   repoPath,
			Name:       rt.Name,
			SHA:        rt.SHA,
			Message:    rt.Message,
			Date:       rt.Date,
			CommitDate: rt.CommitDate,
		}
		if shouldIncludeTag(tag, filters) {
			tags = append(tags, tag)
		}
	}

	sortTags(tags)
	return tags, nil
}

func (p *Provider) remoteTags(ctx context.Context, rc *RepositoryContext) ([]remote.Tag, error) {
	tags, err := p.caches.tags.Do(ctx, rc.RepoPath, func(ctx context.Context) ([]remote.Tag, error) {
		return collectPages(ctx, func(ctx context.Context, cursor string) (*remote.Page[remote.Tag], error) {
			return rc.API.Tags(ctx, rc.Repo, remote.PageOptions{Cursor: cursor, Limit: p.opts.MaxPageSize})
		})
	})
	if err != nil {
		return nil, p.handleRemoteError(err, "failed to get tags", "repo", rc.RepoPath)
	}
	return tags, nil
}

func sortTags(tags []Tag) {
	versions := make(map[string]*semver.Version, len(tags))
	for _, t := range tags {
		if v, err := semver.NewVersion(t.Name); err == nil {
			versions[t.Name] = v
		}
	}

	sort.SliceStable(tags, func(i, j int) bool {
		vi, vj := versions[tags[i].Name], versions[tags[j].Name]
		switch {
		case vi != nil && vj != nil:
			if !vi.Equal(vj) {
				return vi.GreaterThan(vj)
			}
		case vi != nil:
			return true
		case vj != nil:
			return false
		}
		if !tags[i].CommitDate.Equal(tags[j].CommitDate) {
			return tags[i].CommitDate.After(tags[j].CommitDate)
		}
		return tags[i].Name < tags[j].Name
	})
}

// shouldIncludeTag checks if a tag passes all the provided filters.
func shouldIncludeTag(t Tag, filters []TagFilter) bool {
	for _, filter := range filters {
		if !filter(t) {
			return false
		}
	}
	return true
}
