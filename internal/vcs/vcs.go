// Package vcs implements the workspace "vcs" contract consumed by the
// project graph and cache fingerprinting: whether version control is
// enabled, and bulk content hashing of files. An ignore-aware workspace
// walk (DiscoverFiles) is also housed here; the project graph builder and
// the task hasher expand their globs with filepath.Glob and do not call
// it.
//
// Grounded on turbo's cli/internal/fs package for the walk+ignore
// idiom (karrick/godirwalk directory walking, sabhiram/go-gitignore
// pattern matching), generalized from a package-lockfile walk into a
// general-purpose ignore-aware file lister.
package vcs

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	gitignore "github.com/sabhiram/go-gitignore"
)

// VCS is the contract the core depends on: whether version
// control is enabled for this workspace, and batch file content hashing.
type VCS interface {
	IsEnabled() bool
	GetFileHashes(paths []string, allowIgnored bool, batchSize int) (map[string]string, error)
	GetTouchedFiles() ([]string, error)
}

// Git is a VCS backed by a local git checkout. Hashing does not shell out
// to `git hash-object` (that would require a clean index); it reads file
// bytes directly and hashes them the same way moon's file hasher does, so
// dirty working-tree files still fingerprint correctly.
type Git struct {
	root string
}

// New returns a Git VCS rooted at root. Enabled reports whether root (or
// an ancestor) contains a ".git" directory.
func New(root string) *Git {
	return &Git{root: root}
}

// IsEnabled reports whether root sits inside a git working tree.
func (g *Git) IsEnabled() bool {
	dir := g.root
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info != nil {
			return true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}

// GetFileHashes returns a workspace-relative-path -> hex digest map for
// every path in paths that exists, in batches of batchSize (batching keeps
// memory bounded for very large input sets; sequential batches are
// sufficient since hashing is CPU, not I/O, bound). When allowIgnored is
// false, gitignored paths are skipped.
func (g *Git) GetFileHashes(paths []string, allowIgnored bool, batchSize int) (map[string]string, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	var ignorer *gitignore.GitIgnore
	if !allowIgnored {
		ignorer = loadIgnore(g.root)
	}

	out := make(map[string]string, len(paths))
	for start := 0; start < len(paths); start += batchSize {
		end := start + batchSize
		if end > len(paths) {
			end = len(paths)
		}

		for _, rel := range paths[start:end] {
			if ignorer != nil && ignorer.MatchesPath(rel) {
				continue
			}

			abs := filepath.Join(g.root, rel)
			hash, err := hashFile(abs)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return nil, err
			}
			out[rel] = hash
		}
	}

	return out, nil
}

// GetTouchedFiles returns every workspace-relative file with uncommitted
// changes (staged, unstaged, or untracked), the set Task.IsAffected
// intersects against for a --affected run. Returns an empty, non-error
// result when git isn't on PATH, so a caller degrades to "nothing
// affected" rather than failing outright.
func (g *Git) GetTouchedFiles() ([]string, error) {
	if !gitCommandAvailable() {
		return nil, nil
	}

	changed, err := runGit(g.root, "diff", "--name-only", "HEAD")
	if err != nil {
		return nil, err
	}
	untracked, err := runGit(g.root, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []string
	for _, f := range append(changed, untracked...) {
		f = filepath.ToSlash(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

func runGit(dir string, args ...string) ([]string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			// HEAD may not exist yet (fresh repo, no commits); treat as no
			// touched files rather than a hard failure.
			return nil, nil
		}
		return nil, err
	}
	return strings.Split(string(out), "\n"), nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func loadIgnore(root string) *gitignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	ig, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return ig
}

// WalkOptions configures DiscoverFiles.
type WalkOptions struct {
	// Globs restricts the walk to paths matching at least one pattern;
	// empty means every file.
	Globs []string
	// RespectIgnore skips files matched by the root .gitignore. The .git,
	// node_modules and .moon* directories are skipped either way.
	RespectIgnore bool
}

// DiscoverFiles walks root and returns every file path, workspace-relative
// and sorted, skipping files matched by the root .gitignore when
// opts.RespectIgnore is set. Nothing outside this package calls it.
func DiscoverFiles(root string, opts WalkOptions) ([]string, error) {
	var ignorer *gitignore.GitIgnore
	if opts.RespectIgnore {
		ignorer = loadIgnore(root)
	}

	var out []string
	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			rel, err := filepath.Rel(root, osPathname)
			if err != nil {
				return err
			}
			if rel == "." {
				return nil
			}

			if de.IsDir() {
				if rel == ".git" || rel == "node_modules" || strings.HasPrefix(rel, ".moon") {
					return filepath.SkipDir
				}
				return nil
			}

			if ignorer != nil && ignorer.MatchesPath(rel) {
				return nil
			}

			rel = filepath.ToSlash(rel)
			if len(opts.Globs) > 0 && !anyGlobMatch(opts.Globs, rel) {
				return nil
			}

			out = append(out, rel)
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(out)
	return out, nil
}

func anyGlobMatch(globs []string, rel string) bool {
	for _, pattern := range globs {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}

// gitCommandAvailable reports whether a `git` binary is on PATH.
// GetTouchedFiles uses it to return no files, and no error, without git.
func gitCommandAvailable() bool {
	_, err := exec.LookPath("git")
	return err == nil
}
