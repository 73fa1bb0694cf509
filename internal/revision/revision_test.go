package revision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sha = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

func TestIsSHA(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want bool
	}{
		{"full sha", sha, true},
		{"uncommitted", UncommittedSHA, true},
		{"staged", UncommittedStagedSHA, true},
		{"deleted", DeletedOrMissingSHA, true},
		{"short sha", sha[:7], false},
		{"uppercase", "4B825DC642CB6EB9A060E54BF8D69288FBEE4904", false},
		{"branch", "main", false},
		{"parent", sha + "^", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSHA(tt.ref))
		})
	}
}

func TestIsSHALike(t *testing.T) {
	assert.True(t, IsSHALike(sha))
	assert.True(t, IsSHALike(sha+"^"))
	assert.True(t, IsSHALike(sha+"~3"))
	assert.True(t, IsSHALike(sha+":src/main.go"))
	assert.True(t, IsSHALike(UncommittedStagedSHA))
	assert.False(t, IsSHALike("main^"))
	assert.False(t, IsSHALike(sha[:12]))
}

func TestSentinels(t *testing.T) {
	assert.True(t, IsUncommitted(UncommittedSHA))
	assert.True(t, IsUncommitted(UncommittedStagedSHA))
	assert.False(t, IsUncommitted(DeletedOrMissingSHA))
	assert.True(t, IsUncommittedStaged(UncommittedStagedSHA))
	assert.True(t, IsDeletedOrMissing(DeletedOrMissingSHA))
	assert.True(t, IsStash("stash@{0}^3"))
	assert.False(t, IsStash("main^2"))
}

func TestSplitRange(t *testing.T) {
	tests := []struct {
		ref    string
		want   Range
		wantOK bool
	}{
		{"main..feature", Range{Left: "main", Right: "feature"}, true},
		{"main...feature", Range{Left: "main", Right: "feature", Symmetric: true}, true},
		{"origin/main..", Range{Left: "origin/main"}, true},
		{"..HEAD", Range{Right: "HEAD"}, true},
		{sha + ".." + sha, Range{Left: sha, Right: sha}, true},
		{"main", Range{}, false},
		{"..", Range{}, false},
		{sha, Range{}, false},
		{"", Range{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, ok := SplitRange(tt.ref)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, IsRange(tt.ref))
		})
	}
}

func TestRangeString(t *testing.T) {
	assert.Equal(t, "a..b", Range{Left: "a", Right: "b"}.String())
	assert.Equal(t, "a...b", Range{Left: "a", Right: "b", Symmetric: true}.String())
}

func TestValidate(t *testing.T) {
	valid := []string{"main", "feature/x", "v1.2.3", "HEAD~2", "main^", "main^2~1", sha, "main..dev", "a...b"}
	for _, ref := range valid {
		t.Run("valid "+ref, func(t *testing.T) {
			require.NoError(t, Validate(ref))
		})
	}

	invalid := []string{"", "-bad", "bad/", "bad.", "x.lock", "has space", "a//b", "we@{ird", "^2", "what?"}
	for _, ref := range invalid {
		t.Run("invalid "+ref, func(t *testing.T) {
			err := Validate(ref)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "4b825dc", Shorten(sha))
	assert.Equal(t, "4b825dc^", Shorten(sha+"^"))
	assert.Equal(t, "4b825dc..main", Shorten(sha+"..main"))
	assert.Equal(t, "Working Tree", Shorten(UncommittedSHA))
	assert.Equal(t, "Index", Shorten(UncommittedStagedSHA))
	assert.Equal(t, "(deleted)", Shorten(DeletedOrMissingSHA))
	assert.Equal(t, "main", Shorten("main"))
}
