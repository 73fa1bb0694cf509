// Package hostedgit provides the git-data query surface over a hosting API.
// This file contains the commit model and single-commit lookups.
package hostedgit

import (
	"context"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/leodido/go-conventionalcommits"
	"github.com/leodido/go-conventionalcommits/parser"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/remote"
	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/revision"
)

// FileStatus is how a file changed in a commit.
type FileStatus string

const (
	FileAdded     FileStatus = "added"
	FileDeleted   FileStatus = "removed"
	FileModified  FileStatus = "modified"
	FileRenamed   FileStatus = "renamed"
	FileCopied    FileStatus = "copied"
	FileChanged   FileStatus = "changed"
	FileUnchanged FileStatus = "unchanged"
)

// FileChange is one changed file.
type FileChange struct {
	Path         string
	OriginalPath string
	Status       FileStatus
	Additions    int
	Deletions    int
	Changes      int
	Patch        string
}

// CommitStats totals the changes of a commit.
type CommitStats struct {
	Additions    int
	Deletions    int
	ChangedFiles int
}

// Commit is an immutable commit. Author and committer names equal to the
// viewer's name are replaced with YouLabel when the commit is built.
type Commit struct {
	RepoPath  string
	SHA       string
	Author    object.Signature
	Committer object.Signature
	AvatarURL string
	Summary   string
	Message   string
	Parents   []string
	Files     []FileChange
	Stats     *CommitStats

	// Lines holds the blamed lines attributed to this commit. It is only
	// set on commits of a BlameResult.
	Lines []BlameLine
}

// ShortSHA returns the abbreviated sha.
func (c *Commit) ShortSHA() string {
	return revision.Shorten(c.SHA)
}

// IsMerge reports whether the commit has more than one parent.
func (c *Commit) IsMerge() bool {
	return len(c.Parents) > 1
}

// Kind returns the conventional-commit type of the summary, such as "feat"
// or "fix", or "" when the summary does not follow the convention.
func (c *Commit) Kind() string {
	return conventionalKind(c.Summary)
}

func conventionalKind(summary string) string {
	m := parser.NewMachine(conventionalcommits.WithTypes(conventionalcommits.TypesConventional))
	msg, err := m.Parse([]byte(summary))
	if err != nil || msg == nil {
		return ""
	}
	cc, ok := msg.(*conventionalcommits.ConventionalCommit)
	if !ok {
		return ""
	}
	return cc.Type
}

// newCommit builds a Commit from a remote commit. viewer is the name that is
// replaced with YouLabel; an empty viewer disables the substitution.
func newCommit(repoPath string, rc *remote.Commit, viewer string) *Commit {
	summary, _, _ := strings.Cut(rc.Message, "\n")
	c := &Commit{
		RepoPath:  repoPath,
		SHA:       rc.SHA,
		Author:    signatureOf(rc.Author, viewer),
		Committer: signatureOf(rc.Committer, viewer),
		AvatarURL: rc.Author.AvatarURL,
		Summary:   strings.TrimSpace(summary),
		Message:   rc.Message,
		Parents:   append([]string(nil), rc.Parents...),
	}

	if len(rc.Files) > 0 {
		c.Files = fileChanges(rc.Files)
	}
	if rc.ChangedFiles > 0 || rc.Additions > 0 || rc.Deletions > 0 || len(rc.Files) > 0 {
		changed := rc.ChangedFiles
		if changed == 0 {
			changed = len(rc.Files)
		}
		c.Stats = &CommitStats{Additions: rc.Additions, Deletions: rc.Deletions, ChangedFiles: changed}
	}
	return c
}

func signatureOf(id remote.Identity, viewer string) object.Signature {
	name := id.Name
	if viewer != "" && name == viewer {
		name = YouLabel
	}
	return object.Signature{Name: name, Email: id.Email, When: id.Date}
}

func fileChanges(files []remote.File) []FileChange {
	changes := make([]FileChange, 0, len(files))
	for _, f := range files {
		changes = append(changes, FileChange{
			Path:         f.Filename,
			OriginalPath: f.PreviousFilename,
			Status:       FileStatus(f.Status),
			Additions:    f.Additions,
			Deletions:    f.Deletions,
			Changes:      f.Changes,
			Patch:        f.Patch,
		})
	}
	return changes
}

// GetCommit returns the commit ref points at, with its changed files.
// Remote failures are logged and yield nil.
func (p *Provider) GetCommit(ctx context.Context, repoPath, ref string) (*Commit, error) {
	if ref == "" {
		return nil, WrapError(ErrInvalidRef, "revision cannot be empty")
	}
	if revision.IsRange(ref) || revision.IsUncommitted(ref) || revision.IsDeletedOrMissing(ref) {
		return nil, WrapErrorf(ErrInvalidRef, "%s does not name a commit", ref)
	}

	rc, err := p.EnsureContext(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	viewer, err := p.viewerName(ctx, rc)
	if err != nil {
		return nil, err
	}

	commit, err := rc.API.Commit(ctx, rc.Repo, ref)
	if err != nil {
		return nil, p.handleRemoteError(err, "failed to get commit", "repo", repoPath, "ref", ref)
	}
	return newCommit(repoPath, commit, viewer), nil
}

// GetCommitForFile returns the most recent commit at or before ref that
// touched relPath, or nil when there is none.
func (p *Provider) GetCommitForFile(ctx context.Context, repoPath, relPath, ref string) (*Commit, error) {
	log, err := p.GetLogForFile(ctx, DocumentURI{RepoPath: repoPath, Path: relPath, Ref: ref}, LogOptions{Limit: 1})
	if err != nil || log == nil || len(log.Order) == 0 {
		return nil, err
	}
	return log.Commits[log.Order[0]], nil
}
