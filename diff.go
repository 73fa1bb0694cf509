// Package hostedgit provides the git-data query surface over a hosting API.
// This file contains diff operations between two revisions.
package hostedgit

import (
	"context"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/diff"
	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/revision"
)

// PatchText is a comparison rendered as git-style unified diff text.
type PatchText struct {
	Text string

	// IsBinary is set when any file was returned without hunks because it
	// is binary.
	IsBinary bool

	FileCount int
}

// ChangeFilter selects the files of a comparison. A change is kept only if
// every filter returns true.
type ChangeFilter func(FileChange) bool

// GetDiffStatus returns the files changed between ref1 and ref2. ref1 may be
// a range, in which case ref2 must be empty. An empty ref2 compares ref1 with
// its first parent.
// Remote failures are logged and yield nil.
func (p *Provider) GetDiffStatus(ctx context.Context, repoPath, ref1, ref2 string, filters ...ChangeFilter) ([]FileChange, error) {
	base, head, err := diffSides(ref1, ref2)
	if err != nil {
		return nil, err
	}

	rc, err := p.EnsureContext(ctx, repoPath)
	if err != nil {
		return nil, err
	}

	if base == "" {
		base = rc.Metadata.Revision.SHA
	}
	if head == "" {
		head = rc.Metadata.Revision.SHA
	}

	p.logger.Debug("comparing revisions", "repo", repoPath, "base", base, "head", head)

	files, err := rc.API.Compare(ctx, rc.Repo, base, head)
	if err != nil {
		return nil, p.handleRemoteError(err, "failed to compare revisions", "repo", repoPath, "base", base, "head", head)
	}
	return applyChangeFilters(fileChanges(files), filters), nil
}

// GetDiff returns the unified diff between ref1 and ref2, with the same
// revision rules and filters as GetDiffStatus.
func (p *Provider) GetDiff(ctx context.Context, repoPath, ref1, ref2 string, filters ...ChangeFilter) (*PatchText, error) {
	changes, err := p.GetDiffStatus(ctx, repoPath, ref1, ref2, filters...)
	if err != nil || changes == nil {
		return nil, err
	}

	files := make([]diff.File, 0, len(changes))
	for _, c := range changes {
		files = append(files, diff.File{
			Path:         c.Path,
			OriginalPath: c.OriginalPath,
			Status:       string(c.Status),
			Patch:        c.Patch,
		})
	}

	text := diff.Unified(files)
	return &PatchText{
		Text:      text,
		IsBinary:  containsBinaryChanges(changes) || diff.ContainsBinaryFiles(text),
		FileCount: diff.CountChangedFiles(text),
	}, nil
}

// diffSides validates the revision inputs for diff and returns the compare
// base and head. An empty side of a range means the opened revision.
func diffSides(ref1, ref2 string) (string, string, error) {
	if ref1 == "" {
		return "", "", WrapError(ErrInvalidRef, "revision cannot be empty")
	}

	if r, ok := revision.SplitRange(ref1); ok {
		if ref2 != "" {
			return "", "", WrapError(ErrInvalidRef, "a range cannot be compared with another revision")
		}
		return r.Left, r.Right, nil
	}

	for _, ref := range []string{ref1, ref2} {
		if revision.IsUncommitted(ref) || revision.IsDeletedOrMissing(ref) {
			return "", "", WrapErrorf(ErrInvalidRef, "%s cannot be compared remotely", revision.Shorten(ref))
		}
	}
	if ref2 == "" {
		return ref1 + "^", ref1, nil
	}
	return ref1, ref2, nil
}

func applyChangeFilters(changes []FileChange, filters []ChangeFilter) []FileChange {
	filtered := make([]FileChange, 0, len(changes))
	for _, change := range changes {
		if shouldIncludeChange(change, filters) {
			filtered = append(filtered, change)
		}
	}
	return filtered
}

func shouldIncludeChange(change FileChange, filters []ChangeFilter) bool {
	for _, filter := range filters {
		if filter != nil && !filter(change) {
			return false
		}
	}
	return true
}

func containsBinaryChanges(changes []FileChange) bool {
	for _, change := range changes {
		if diff.IsBinaryPath(change.OriginalPath) || diff.IsBinaryPath(change.Path) {
			return true
		}
	}
	return false
}
