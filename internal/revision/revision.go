// Package revision recognizes the textual revision forms accepted by the
// provider: full shas, sha-like expressions, ranges and the reserved
// uncommitted and deleted sentinels.
package revision

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

const (
	// UncommittedSHA stands for the working tree.
	UncommittedSHA = "0000000000000000000000000000000000000000"

	// UncommittedStagedSHA stands for the index.
	UncommittedStagedSHA = UncommittedSHA + ":"

	// DeletedOrMissingSHA marks a revision that could not be found, usually
	// because the file did not exist at that point.
	DeletedOrMissingSHA = UncommittedSHA + "-"

	// ShortLength is the abbreviation length used by Shorten.
	ShortLength = 7
)

var (
	shaRegex     = regexp.MustCompile(`(^[0-9a-f]{40}$)|(^0{40}(:|-)$)`)
	shaLikeRegex = regexp.MustCompile(`(^[0-9a-f]{40}([\^@~:]\S*)?$)|(^0{40}(:|-)$)`)
	rangeRegex   = regexp.MustCompile(`^(\S*?)(\.\.\.?)(\S*)$`)
	stashRegex   = regexp.MustCompile(`\^3$`)
	suffixRegex  = regexp.MustCompile(`^(.*?)((?:[\^~][0-9]*)*)$`)
)

// ErrInvalid is returned by Validate for malformed revisions.
var ErrInvalid = errors.New("invalid revision")

// Range is a two-sided revision range.
type Range struct {
	Left  string
	Right string
	// Symmetric is true for the three-dot form.
	Symmetric bool
}

// String formats the range back into git syntax.
func (r Range) String() string {
	if r.Symmetric {
		return r.Left + "..." + r.Right
	}
	return r.Left + ".." + r.Right
}

// IsSHA reports whether ref is a full 40-hex sha or one of the sentinels.
func IsSHA(ref string) bool {
	if plumbing.IsHash(ref) && strings.ToLower(ref) == ref {
		return true
	}
	return shaRegex.MatchString(ref)
}

// IsSHALike reports whether ref is a full sha, optionally followed by a
// suffix such as ^, ~2 or :path.
func IsSHALike(ref string) bool {
	return shaLikeRegex.MatchString(ref)
}

// IsUncommitted reports whether ref is the uncommitted or staged sentinel.
func IsUncommitted(ref string) bool {
	return ref == UncommittedSHA || ref == UncommittedStagedSHA
}

// IsUncommittedStaged reports whether ref is the staged sentinel.
func IsUncommittedStaged(ref string) bool {
	return ref == UncommittedStagedSHA
}

// IsDeletedOrMissing reports whether ref is the deleted sentinel.
func IsDeletedOrMissing(ref string) bool {
	return ref == DeletedOrMissingSHA
}

// IsStash reports whether ref addresses a stash's untracked-files parent.
func IsStash(ref string) bool {
	return stashRegex.MatchString(ref)
}

// IsRange reports whether ref uses the a..b or a...b form.
func IsRange(ref string) bool {
	_, ok := SplitRange(ref)
	return ok
}

// SplitRange splits a range into its sides. Either side may be empty, which
// git reads as HEAD.
func SplitRange(ref string) (Range, bool) {
	if ref == "" || IsSHA(ref) {
		return Range{}, false
	}
	m := rangeRegex.FindStringSubmatch(ref)
	if m == nil {
		return Range{}, false
	}
	if m[1] == "" && m[3] == "" {
		return Range{}, false
	}
	return Range{Left: m[1], Right: m[3], Symmetric: m[2] == "..."}, true
}

// Validate checks ref against the subset of git revision grammar the remote
// understands: a name optionally followed by ^, ^N or ~N suffixes.
func Validate(ref string) error {
	if ref == "" {
		return fmt.Errorf("%w: empty", ErrInvalid)
	}
	if r, ok := SplitRange(ref); ok {
		for _, side := range []string{r.Left, r.Right} {
			if side == "" {
				continue
			}
			if err := Validate(side); err != nil {
				return err
			}
		}
		return nil
	}
	if IsSHA(ref) {
		return nil
	}

	m := suffixRegex.FindStringSubmatch(ref)
	name := m[1]
	if name == "" {
		return fmt.Errorf("%w: %q has no base name", ErrInvalid, ref)
	}
	if err := validateName(name); err != nil {
		return fmt.Errorf("%w: %q: %s", ErrInvalid, ref, err.Error())
	}
	return nil
}

func validateName(name string) error {
	switch {
	case strings.HasPrefix(name, "-"):
		return errors.New("must not start with '-'")
	case strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/"):
		return errors.New("must not start or end with '/'")
	case strings.HasSuffix(name, "."):
		return errors.New("must not end with '.'")
	case strings.HasSuffix(name, ".lock"):
		return errors.New("must not end with '.lock'")
	case strings.Contains(name, ".."):
		return errors.New("must not contain '..'")
	case strings.Contains(name, "//"):
		return errors.New("must not contain '//'")
	case strings.Contains(name, "@{"):
		return errors.New("must not contain '@{'")
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(" ~^:?*[\\", r) {
			return fmt.Errorf("invalid character %q", r)
		}
	}
	return nil
}

// Shorten abbreviates shas for display. Sentinels and non-sha refs are
// returned as is.
func Shorten(ref string) string {
	switch {
	case ref == UncommittedSHA:
		return "Working Tree"
	case ref == UncommittedStagedSHA:
		return "Index"
	case ref == DeletedOrMissingSHA:
		return "(deleted)"
	}
	if r, ok := SplitRange(ref); ok {
		return Range{Left: Shorten(r.Left), Right: Shorten(r.Right), Symmetric: r.Symmetric}.String()
	}
	if IsSHALike(ref) {
		return ref[:ShortLength] + ref[40:]
	}
	return ref
}
