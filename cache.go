// Package hostedgit provides the git-data query surface over a hosting API.
// This file contains the per-repository caches and their invalidation.
package hostedgit

import (
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/cache"
	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/remote"
)

// CacheCategory names one per-repository cache.
type CacheCategory string

const (
	CacheBranches    CacheCategory = "branches"
	CacheTags        CacheCategory = "tags"
	CacheCurrentUser CacheCategory = "currentUser"
)

// AllCacheCategories lists every per-repository cache.
var AllCacheCategories = []CacheCategory{CacheBranches, CacheTags, CacheCurrentUser}

// repoCaches holds the per-repository caches, keyed by repository path.
type repoCaches struct {
	branches *cache.Memo[[]remote.Branch]
	tags     *cache.Memo[[]remote.Tag]
	users    *cache.Memo[*User]
}

func newRepoCaches() *repoCaches {
	return &repoCaches{
		branches: cache.NewMemo[[]remote.Branch](),
		tags:     cache.NewMemo[[]remote.Tag](),
		users:    cache.NewMemo[*User](),
	}
}

func (c *repoCaches) invalidate(repoPath string, categories ...CacheCategory) {
	for _, cat := range categories {
		switch cat {
		case CacheBranches:
			c.branches.Delete(repoPath)
		case CacheTags:
			c.tags.Delete(repoPath)
		case CacheCurrentUser:
			c.users.Delete(repoPath)
		}
	}
}

func (c *repoCaches) invalidateAll(categories ...CacheCategory) {
	if len(categories) == 0 {
		categories = AllCacheCategories
	}
	for _, cat := range categories {
		switch cat {
		case CacheBranches:
			c.branches.Clear()
		case CacheTags:
			c.tags.Clear()
		case CacheCurrentUser:
			c.users.Clear()
		}
	}
}

// ResetCache drops the named caches of repoPath, or all of them when no
// category is given.
func (p *Provider) ResetCache(repoPath string, categories ...CacheCategory) {
	if len(categories) == 0 {
		categories = AllCacheCategories
	}
	p.caches.invalidate(repoPath, categories...)
	p.emit(Event{Type: EventCacheReset, RepoPaths: []string{repoPath}, Categories: categories})
}

// ResetAllCaches drops the named caches of every repository, or all of them
// when no category is given.
func (p *Provider) ResetAllCaches(categories ...CacheCategory) {
	if len(categories) == 0 {
		categories = AllCacheCategories
	}
	p.caches.invalidateAll(categories...)
	p.emit(Event{Type: EventCacheReset, Categories: categories})
}

// OnRepositoriesChanged drops branches, tags, current user and document
// caches of the given repositories, or of every repository when none is
// given.
func (p *Provider) OnRepositoriesChanged(repoPaths ...string) {
	if len(repoPaths) == 0 {
		p.caches.invalidateAll()
		p.blames.Clear()
		p.fileLogs.Clear()
	} else {
		for _, repoPath := range repoPaths {
			p.caches.invalidate(repoPath, AllCacheCategories...)
			p.dropDocuments(repoPath)
		}
	}
	p.emit(Event{Type: EventRepositoriesChanged, RepoPaths: repoPaths})
}

// InvalidateDocument drops the cached blame and file log of uri.
func (p *Provider) InvalidateDocument(uri DocumentURI) {
	prefix := uri.RepoPath + keySep + uri.Path + keySep
	match := func(key string) bool { return strings.HasPrefix(key, prefix) }
	p.blames.DeleteFunc(match)
	p.fileLogs.DeleteFunc(match)
}

func (p *Provider) dropDocuments(repoPath string) {
	match := func(key string) bool { return strings.HasPrefix(key, repoPath+keySep) }
	p.blames.DeleteFunc(match)
	p.fileLogs.DeleteFunc(match)
}
