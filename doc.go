// Package hostedgit provides the git-data query surface of a local git
// client for repositories that live only on a hosting service.
//
// Branches, tags, commits, history, diffs, blame, search and commit graphs
// are served from the hosting API instead of a working copy, in the same
// shapes a local backend returns, so callers can treat hosted and local
// repositories interchangeably.
//
// # Design Principles
//
// The package follows these core principles:
//   - Lazy resolution - a repository context is resolved on first use and shared
//   - Single-flight caching - concurrent callers share one remote request
//   - Graceful degradation - read operations log remote failures and return nothing
//   - Go idioms - accepts interfaces, returns concrete types
//
// # Basic Usage
//
// Create a provider with an authentication provider:
//
//	import (
//	    "context"
//	    "github.com/input-output-hk/catalyst-forge-libs/hostedgit"
//	)
//
//	provider, err := hostedgit.New(&hostedgit.Options{
//	    Auth: hostedgit.NewEnvTokenAuth(),
//	})
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
//
// Repositories are addressed by paths such as
// "vscode-vfs://github/owner/name". A ref query parameter opens the
// repository at a branch, tag or commit:
//
//	repoPath := hostedgit.FormatRepoPath("", "octo", "hello")
//
// # Branches and Tags
//
// Every remote branch is reported twice, as a local branch tracking
// origin/<name> and as the remote branch origin/<name>:
//
//	branches, err := provider.GetBranches(ctx, repoPath)
//
//	// Only local-looking branches matching a pattern
//	branches, err = provider.GetBranches(ctx, repoPath,
//	    hostedgit.LocalBranchFilter(),
//	    hostedgit.BranchPatternFilter("release/*"),
//	)
//
//	tags, err := provider.GetTags(ctx, repoPath, hostedgit.TagPrefixFilter("v"))
//
// # History
//
// Logs are paged with opaque cursors. More returns a new result holding
// every commit seen so far; a chain must be continued from its latest
// result:
//
//	log, err := provider.GetLog(ctx, repoPath, hostedgit.LogOptions{Limit: 50})
//	for log != nil && log.HasMore {
//	    log, err = log.More(ctx, hostedgit.DefaultLimit)
//	    if err != nil {
//	        return err
//	    }
//	}
//
//	// File history
//	uri := hostedgit.DocumentURI{RepoPath: repoPath, Path: "README.md"}
//	fileLog, err := provider.GetLogForFile(ctx, uri, hostedgit.LogOptions{})
//
// # Blame
//
//	blame, err := provider.GetBlame(ctx, uri)
//	line, err := provider.GetBlameForLine(ctx, uri, 10, hostedgit.BlameLineOptions{})
//	part := hostedgit.GetBlameRange(blame, 0, 20)
//
// # Commit Graph
//
//	graph, err := provider.GetCommitsForGraph(ctx, repoPath, 100)
//	next, err := graph.More(ctx, 100)
//
// # Search
//
//	result, err := provider.SearchCommits(ctx, repoPath, "author:@me fix", hostedgit.SearchOptions{})
//
// # Error Handling
//
// Operations that cannot proceed without a repository context return an
// *OpenRepositoryError or *AuthenticationError; both can be checked with
// errors.Is against the package sentinels:
//
//	_, err := provider.GetBranches(ctx, repoPath)
//	if errors.Is(err, hostedgit.ErrAuthRequired) {
//	    // prompt the user, then call provider.Reconnect()
//	}
//
// Remote failures on read operations are logged and reported as a nil or
// empty result. Cancellation is always returned and matches ErrCancelled.
//
// # Caching
//
// Branches, tags and the current user are cached per repository; blame and
// file history per document. Caches are only dropped by explicit signals:
// ResetCache, ResetAllCaches, OnRepositoriesChanged, InvalidateDocument,
// CloseRepository, OnSessionsChanged and Reconnect.
//
// # Concurrency
//
// A Provider is safe for concurrent use. LogResult, GraphResult and
// SearchResult values are immutable; continue each chain sequentially.
package hostedgit
