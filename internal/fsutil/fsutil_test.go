package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRecursiveCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "out", "dst.txt")
	if err := os.WriteFile(src, []byte("payload"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := RecursiveCopy(src, dst, 0644); err != nil {
		t.Fatalf("RecursiveCopy: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("data = %q", data)
	}
}

func TestRecursiveCopyDirectory(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	os.MkdirAll(filepath.Join(srcDir, "nested"), 0755)
	os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("a"), 0644)
	os.WriteFile(filepath.Join(srcDir, "nested", "b.txt"), []byte("b"), 0644)

	dstDir := filepath.Join(dir, "dst")
	if err := RecursiveCopy(srcDir, dstDir, 0644); err != nil {
		t.Fatalf("RecursiveCopy: %v", err)
	}

	if data, err := os.ReadFile(filepath.Join(dstDir, "nested", "b.txt")); err != nil || string(data) != "b" {
		t.Fatalf("nested file not restored correctly: %v %q", err, data)
	}
}
