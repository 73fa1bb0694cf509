package hostedgit

import (
	"path/filepath"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/diff"
)

// PathFilter keeps changes whose path, or pre-rename path, matches the
// filepath.Match pattern.
func PathFilter(pattern string) ChangeFilter {
	return func(change FileChange) bool {
		for _, name := range []string{change.OriginalPath, change.Path} {
			if name == "" {
				continue
			}
			if matched, _ := filepath.Match(pattern, name); matched {
				return true
			}
		}
		return false
	}
}

// PathPrefixFilter keeps changes under prefix, usually a directory such as
// "src/".
func PathPrefixFilter(prefix string) ChangeFilter {
	return func(change FileChange) bool {
		return strings.HasPrefix(change.Path, prefix) ||
			(change.OriginalPath != "" && strings.HasPrefix(change.OriginalPath, prefix))
	}
}

// ExtensionFilter keeps changes to files with one of extensions, given with
// the dot. Matching ignores case.
func ExtensionFilter(extensions ...string) ChangeFilter {
	extSet := make(map[string]bool)
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = true
	}

	return func(change FileChange) bool {
		for _, name := range []string{change.OriginalPath, change.Path} {
			if name != "" && extSet[strings.ToLower(filepath.Ext(name))] {
				return true
			}
		}
		return false
	}
}

// NonBinaryFilter drops files the compare API would return without a patch
// because of their extension.
func NonBinaryFilter() ChangeFilter {
	return func(change FileChange) bool {
		return !diff.IsBinaryPath(change.OriginalPath) && !diff.IsBinaryPath(change.Path)
	}
}

// AddedFilter keeps added files.
func AddedFilter() ChangeFilter {
	return func(change FileChange) bool {
		return change.Status == FileAdded
	}
}

// DeletedFilter keeps removed files.
func DeletedFilter() ChangeFilter {
	return func(change FileChange) bool {
		return change.Status == FileDeleted
	}
}

// ModifiedFilter keeps files changed in place.
func ModifiedFilter() ChangeFilter {
	return func(change FileChange) bool {
		return change.Status == FileModified || change.Status == FileChanged
	}
}

// RenamedFilter keeps files that moved.
func RenamedFilter() ChangeFilter {
	return func(change FileChange) bool {
		return change.Status == FileRenamed ||
			(change.OriginalPath != "" && change.OriginalPath != change.Path)
	}
}

// AndFilter passes a change when every non-nil filter does.
func AndFilter(filters ...ChangeFilter) ChangeFilter {
	return func(change FileChange) bool {
		for _, filter := range filters {
			if filter != nil && !filter(change) {
				return false
			}
		}
		return true
	}
}

// OrFilter passes a change when any non-nil filter does.
func OrFilter(filters ...ChangeFilter) ChangeFilter {
	return func(change FileChange) bool {
		for _, filter := range filters {
			if filter != nil && filter(change) {
				return true
			}
		}
		return false
	}
}

// NotFilter inverts filter. A nil filter excludes nothing.
func NotFilter(filter ChangeFilter) ChangeFilter {
	return func(change FileChange) bool {
		return filter == nil || !filter(change)
	}
}

// CustomFilter wraps an arbitrary predicate.
func CustomFilter(predicate func(FileChange) bool) ChangeFilter {
	return ChangeFilter(predicate)
}
