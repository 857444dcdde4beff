package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ontools/moonrun/internal/task"
	"github.com/ontools/moonrun/internal/vcs"
)

// TaskHash fingerprints a task's cacheable identity: its command, args,
// env, the secret-hashed values of any InputVars it reads from the live
// environment, platform, the content hash of every concrete input file
// (plain paths and glob-expanded matches alike), and the hashes of
// whatever dependency targets already ran earlier in this pipeline
// invocation.
// Two runs produce the same hash if and only if none of those inputs
// changed, which is exactly the condition under which a RunTarget action
// may be satisfied from cache instead of executed.
//
// InputVars hashing (secretHashEnvVars below) is grounded on the
// teacher's cli/internal/env package's ToSecretHashable, trimmed to the
// single key->hashed-value pairing this task hash needs — the teacher's
// explicit/matching-by-regex source split has no moon analog (a task
// only ever references InputVars by exact name, never by pattern).
func TaskHash(workspaceRoot string, v vcs.VCS, t *task.Task, depHashes map[string]string) (string, error) {
	inputFiles := resolveFileSet(workspaceRoot, t.InputPaths, t.InputGlobs)

	var fileHashes map[string]string
	if v.IsEnabled() {
		h, err := v.GetFileHashes(inputFiles, true, 200)
		if err != nil {
			return "", fmt.Errorf("hashing inputs for %s: %w", t.Target, err)
		}
		fileHashes = h
	} else {
		fileHashes = map[string]string{}
	}

	inputVars := make([]string, 0, t.InputVars.Cardinality())
	for v := range t.InputVars.Iter() {
		inputVars = append(inputVars, v.(string))
	}
	inputVarHashes := secretHashEnvVars(inputVars)

	h := sha256.New()
	fmt.Fprintf(h, "command=%s\n", t.Command)
	for _, a := range t.Args {
		fmt.Fprintf(h, "arg=%s\n", a)
	}
	for _, k := range sortedStringKeys(t.Env) {
		fmt.Fprintf(h, "env:%s=%s\n", k, t.Env[k])
	}
	// InputVars reference the *value* of env vars read from the live
	// environment, not ones the task itself declares; their values are
	// hashed, never written in the clear, so a secret's content never
	// appears in a persisted hash manifest.
	for _, pair := range inputVarHashes {
		fmt.Fprintf(h, "inputvar:%s\n", pair)
	}
	fmt.Fprintf(h, "platform=%s\n", t.Platform)
	for _, f := range inputFiles {
		fmt.Fprintf(h, "input:%s=%s\n", f, fileHashes[f])
	}
	for _, k := range sortedStringKeys(depHashes) {
		fmt.Fprintf(h, "dep:%s=%s\n", k, depHashes[k])
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// resolveOutputFiles expands a task's configured output paths and globs
// into concrete, existing, absolute file paths under workspaceRoot, for
// handing to Cache.Put once a target has actually run.
func resolveOutputFiles(workspaceRoot string, t *task.Task) []string {
	rel := resolveFileSet(workspaceRoot, t.OutputPaths, t.OutputGlobs)
	out := make([]string, 0, len(rel))
	for _, r := range rel {
		out = append(out, filepath.Join(workspaceRoot, r))
	}
	return out
}

// resolveFileSet expands a mapset of workspace-relative plain paths and a
// mapset of workspace-relative glob patterns into a sorted, deduplicated
// list of concrete workspace-relative files that exist on disk.
func resolveFileSet(workspaceRoot string, paths, globs setLike) []string {
	seen := map[string]bool{}
	var out []string

	add := func(rel string) {
		rel = filepath.ToSlash(rel)
		if !seen[rel] {
			seen[rel] = true
			out = append(out, rel)
		}
	}

	for v := range paths.Iter() {
		p := v.(string)
		if info, err := os.Stat(filepath.Join(workspaceRoot, p)); err == nil && !info.IsDir() {
			add(p)
		}
	}

	for v := range globs.Iter() {
		pattern := v.(string)
		matches, err := filepath.Glob(filepath.Join(workspaceRoot, pattern))
		if err != nil {
			continue
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			if rel, err := filepath.Rel(workspaceRoot, m); err == nil {
				add(rel)
			}
		}
	}

	sort.Strings(out)
	return out
}

// setLike is the subset of mapset.Set this package needs, kept narrow so
// hash.go doesn't have to import the concrete mapset package directly.
type setLike interface {
	Iter() <-chan interface{}
}

func sortedStringKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// secretHashEnvVars looks up each of keys in the live process environment
// and returns sorted "key=hexdigest" pairs, the value's sha256 rather than
// its literal content, so a secret referenced by a task's InputVars never
// appears in the clear in a persisted hash manifest.
func secretHashEnvVars(keys []string) []string {
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		digest := sha256.Sum256([]byte(os.Getenv(k)))
		pairs = append(pairs, fmt.Sprintf("%s=%x", k, digest))
	}
	sort.Strings(pairs)
	return pairs
}
