package hostedgit

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/remote"
)

func changePaths(changes []FileChange) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.Path)
	}
	return out
}

func TestGetDiffStatus(t *testing.T) {
	tests := []struct {
		name      string
		ref1      string
		ref2      string
		filters   []ChangeFilter
		want      []string
		wantSides []string
	}{
		{
			name:      "commit against its parent",
			ref1:      sha("c4"),
			want:      []string{"src/api.go", "src/search.go"},
			wantSides: []string{sha("c4") + "^", sha("c4")},
		},
		{
			name:      "two revisions",
			ref1:      "release/1.x",
			ref2:      "origin/main",
			want:      []string{"README.md", "src/feature.go"},
			wantSides: []string{"release/1.x", "main"},
		},
		{
			name:      "range",
			ref1:      "release/1.x..feature-x",
			want:      []string{"src/feature.go"},
			wantSides: []string{"release/1.x", "feature-x"},
		},
		{
			name:      "open range ends at the opened revision",
			ref1:      "v1.0.0..",
			want:      []string{"README.md", "src/api.go", "src/feature.go", "src/search.go"},
			wantSides: []string{"v1.0.0", sha("c6")},
		},
		{
			name:      "filtered",
			ref1:      "v1.0.0..",
			filters:   []ChangeFilter{PathPrefixFilter("src/"), NotFilter(PathFilter("src/feature.go"))},
			want:      []string{"src/api.go", "src/search.go"},
			wantSides: []string{"v1.0.0", sha("c6")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			changes, err := env.provider.GetDiffStatus(context.Background(), testRepoPath, tt.ref1, tt.ref2, tt.filters...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, changePaths(changes))
			assert.Equal(t, tt.wantSides, env.api.refsFor("Compare"))
		})
	}
}

func TestGetDiffStatus_InvalidRefs(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct{ ref1, ref2 string }{
		{"", ""},
		{"main..feature-x", "main"},
		{UncommittedSHA, ""},
		{"main", UncommittedStagedSHA},
		{DeletedOrMissingSHA, "main"},
	}
	for _, tt := range tests {
		_, err := env.provider.GetDiffStatus(context.Background(), testRepoPath, tt.ref1, tt.ref2)
		assert.ErrorIs(t, err, ErrInvalidRef, "%q %q", tt.ref1, tt.ref2)
	}
	assert.Zero(t, env.api.totalCalls())
}

func TestGetDiffStatus_RemoteFailure(t *testing.T) {
	env := newTestEnv(t)
	env.api.setErr("Compare", &remote.HTTPError{StatusCode: http.StatusNotFound})

	changes, err := env.provider.GetDiffStatus(context.Background(), testRepoPath, "main", "")
	assert.NoError(t, err)
	assert.Nil(t, changes)

	patch, err := env.provider.GetDiff(context.Background(), testRepoPath, "main", "")
	assert.NoError(t, err)
	assert.Nil(t, patch)
}

func TestGetDiff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	patch, err := env.provider.GetDiff(ctx, testRepoPath, sha("c5"), "")
	require.NoError(t, err)
	require.NotNil(t, patch)

	assert.Equal(t, 1, patch.FileCount)
	assert.False(t, patch.IsBinary)
	assert.Equal(t, "diff --git a/README.md b/README.md\n--- a/README.md\n+++ b/README.md\n@@ -1 +1 @@\n-old\n+new\n", patch.Text)

	patch, err = env.provider.GetDiff(ctx, testRepoPath, sha("c2"), "")
	require.NoError(t, err)
	assert.True(t, patch.IsBinary)
	assert.Equal(t, "diff --git a/assets/logo.png b/assets/logo.png\nnew file mode 100644\nBinary files differ\n", patch.Text)

	patch, err = env.provider.GetDiff(ctx, testRepoPath, "v1.0.0..", "", NonBinaryFilter(), ExtensionFilter(".md"))
	require.NoError(t, err)
	assert.Equal(t, 1, patch.FileCount)
}
