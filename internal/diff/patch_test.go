package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsBinaryFiles(t *testing.T) {
	tests := []struct {
		name  string
		files []File
		want  bool
	}{
		{
			name:  "text hunks",
			files: []File{{Path: "README.md", Status: "modified", Patch: "@@ -1 +1 @@\n-old\n+new"}},
		},
		{
			name:  "binary without hunks",
			files: []File{{Path: "assets/logo.png", Status: "added"}},
			want:  true,
		},
		{
			name: "binary among text",
			files: []File{
				{Path: "src/api.go", Status: "modified", Patch: "@@ -3 +3 @@\n-a\n+b"},
				{Path: "dist/app.bin", Status: "removed"},
			},
			want: true,
		},
		{
			name:  "oversized text file without hunks",
			files: []File{{Path: "testdata/big.json", Status: "modified"}},
		},
		{name: "nothing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsBinaryFiles(Unified(tt.files)))
		})
	}

	assert.True(t, ContainsBinaryFiles("diff --git a/x b/x\nGIT binary patch\nliteral 4\n"))
}

func TestCountChangedFiles(t *testing.T) {
	tests := []struct {
		name  string
		files []File
		want  int
	}{
		{name: "none", want: 0},
		{
			name:  "one",
			files: []File{{Path: "README.md", Status: "modified", Patch: "@@ -1 +1 @@\n-old\n+new"}},
			want:  1,
		},
		{
			name: "headers only",
			files: []File{
				{Path: "b.txt", OriginalPath: "a.txt", Status: "renamed"},
				{Path: "assets/logo.png", Status: "added"},
				{Path: "empty.txt", Status: "added"},
			},
			want: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CountChangedFiles(Unified(tt.files)))
		})
	}

	assert.Equal(t, 0, CountChangedFiles("+diff --git a/x b/x"), "only line-initial headers count")
}

func TestUnified(t *testing.T) {
	files := []File{
		{Path: "main.go", Status: "modified", Patch: "@@ -1 +1 @@\n-old\n+new"},
		{Path: "new.txt", Status: "added", Patch: "@@ -0,0 +1 @@\n+hello\n"},
		{Path: "logo.png", Status: "added"},
		{Path: "b.txt", OriginalPath: "a.txt", Status: "renamed"},
	}

	text := Unified(files)

	assert.Equal(t, 4, CountChangedFiles(text))
	assert.True(t, ContainsBinaryFiles(text))
	assert.Contains(t, text, "diff --git a/main.go b/main.go\n--- a/main.go\n+++ b/main.go\n@@ -1 +1 @@\n-old\n+new\n")
	assert.Contains(t, text, "new file mode 100644\n--- /dev/null\n+++ b/new.txt\n")
	assert.Contains(t, text, "diff --git a/a.txt b/b.txt\nrename from a.txt\nrename to b.txt\n")
	assert.Empty(t, Unified(nil))
}

func TestIsBinaryPath(t *testing.T) {
	assert.True(t, IsBinaryPath("assets/Logo.PNG"))
	assert.True(t, IsBinaryPath("lib.so"))
	assert.False(t, IsBinaryPath("main.go"))
	assert.False(t, IsBinaryPath(""))
}
