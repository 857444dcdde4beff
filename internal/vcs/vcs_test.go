package vcs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGitIsEnabledDetectsDotGit(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	g := New(dir)
	if !g.IsEnabled() {
		t.Fatalf("expected IsEnabled() to detect .git directory")
	}
}

func TestGitIsEnabledFalseWithoutDotGit(t *testing.T) {
	g := New(t.TempDir())
	if g.IsEnabled() {
		t.Fatalf("expected IsEnabled() to be false without .git")
	}
}

func TestGetFileHashesSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	g := New(dir)
	hashes, err := g.GetFileHashes([]string{"a.txt", "missing.txt"}, true, 10)
	if err != nil {
		t.Fatalf("GetFileHashes: %v", err)
	}
	if _, ok := hashes["missing.txt"]; ok {
		t.Fatalf("missing.txt should not be present")
	}
	if hashes["a.txt"] == "" {
		t.Fatalf("expected a non-empty hash for a.txt")
	}
}

func TestGetFileHashesStableForSameContent(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("same"), 0644)
	os.WriteFile(filepath.Join(dir, "b.txt"), []byte("same"), 0644)

	g := New(dir)
	hashes, err := g.GetFileHashes([]string{"a.txt", "b.txt"}, true, 10)
	if err != nil {
		t.Fatalf("GetFileHashes: %v", err)
	}
	if hashes["a.txt"] != hashes["b.txt"] {
		t.Fatalf("identical content should hash identically")
	}
}

func TestDiscoverFilesSkipsGitDirectory(t *testing.T) {
	dir := t.TempDir()
	os.Mkdir(filepath.Join(dir, ".git"), 0755)
	os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref: refs/heads/main"), 0644)
	os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi"), 0644)

	files, err := DiscoverFiles(dir, WalkOptions{})
	if err != nil {
		t.Fatalf("DiscoverFiles: %v", err)
	}
	for _, f := range files {
		if f == ".git/HEAD" {
			t.Fatalf("expected .git contents to be skipped, got %v", files)
		}
	}
	found := false
	for _, f := range files {
		if f == "README.md" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected README.md in %v", files)
	}
}
