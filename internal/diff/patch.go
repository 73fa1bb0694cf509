// Package diff assembles unified diff text from the per-file patch hunks a
// hosting API returns, and inspects the result.
package diff

import (
	"path/filepath"
	"strings"
)

// File is one file of a comparison. Patch holds only the hunks, without any
// file header; it is empty for binary or oversized files.
type File struct {
	Path         string
	OriginalPath string
	Status       string
	Patch        string
}

// Unified renders files as git-style unified diff text.
func Unified(files []File) string {
	var b strings.Builder
	for _, f := range files {
		from, to := f.Path, f.Path
		if f.OriginalPath != "" {
			from = f.OriginalPath
		}

		b.WriteString("diff --git a/" + from + " b/" + to + "\n")
		switch f.Status {
		case "added":
			b.WriteString("new file mode 100644\n")
		case "removed":
			b.WriteString("deleted file mode 100644\n")
		case "renamed":
			b.WriteString("rename from " + from + "\nrename to " + to + "\n")
		}

		if f.Patch == "" {
			if IsBinaryPath(to) || IsBinaryPath(from) {
				b.WriteString("Binary files differ\n")
			}
			continue
		}

		oldName, newName := "a/"+from, "b/"+to
		switch f.Status {
		case "added":
			oldName = "/dev/null"
		case "removed":
			newName = "/dev/null"
		}
		b.WriteString("--- " + oldName + "\n+++ " + newName + "\n")
		b.WriteString(f.Patch)
		if !strings.HasSuffix(f.Patch, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// ContainsBinaryFiles reports whether patch text mentions binary content.
func ContainsBinaryFiles(patchText string) bool {
	return strings.Contains(patchText, "Binary files") || strings.Contains(patchText, "GIT binary patch")
}

// CountChangedFiles counts the file headers of patch text.
func CountChangedFiles(patchText string) int {
	n := 0
	for _, line := range strings.Split(patchText, "\n") {
		if strings.HasPrefix(line, "diff --git ") {
			n++
		}
	}
	return n
}

var binaryExts = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "ico": true,
	"pdf": true, "zip": true, "tar": true, "gz": true, "bz2": true,
	"exe": true, "dll": true, "so": true, "dylib": true, "bin": true,
	"mp3": true, "mp4": true, "avi": true, "mov": true, "wav": true,
	"ttf": true, "otf": true, "woff": true, "woff2": true, "eot": true,
}

// IsBinaryPath reports whether a file path likely names a binary file, based
// on its extension.
func IsBinaryPath(path string) bool {
	if path == "" {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return binaryExts[ext]
}
