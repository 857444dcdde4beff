// Package cache implements the workspace "cache" contract:
// the projects-state cache used by C5's preload step, the hash-manifest
// writer used for cache fingerprinting, the JSON run-report writer used
// by C8, and a content-addressed local output cache keyed by task hash
// that the action pipeline consults before and after running a task.
//
// Grounded on turbo's cli/internal/cache/cache_fs.go (the
// filesystem cache's Fetch/Put shape, using fsutil's copy primitives
// instead of turbo's turbopath-based ones) and cache_noop.go (the
// disabled-cache variant), generalized from a single npm-task-output
// cache into the orchestrator's projects-state/hash-manifest/run-report
// trio plus output caching.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ontools/moonrun/internal/fsutil"
)

// ProjectsState is the persisted shape of .moon/cache/states/projects.json.
type ProjectsState struct {
	LastHash     string            `json:"lastHash"`
	LastGlobTime uint64            `json:"lastGlobTime"`
	Globs        []string          `json:"globs"`
	Projects     map[string]string `json:"projects"`

	path string
}

// Save persists the state back to disk, byte-stable (sorted map keys via
// Go's encoding/json, which already serializes map keys in sorted order)
// so a saved-then-loaded state round-trips identically.
func (s *ProjectsState) Save() error {
	if s.path == "" {
		return fmt.Errorf("projects state has no backing path")
	}
	return writeJSON(s.path, s)
}

// Cache is the workspace "cache" contract.
type Cache interface {
	CacheProjectsState() (*ProjectsState, error)
	CreateHashManifest(hash string, payload interface{}) error
	CreateJSONReport(name string, payload interface{}) error

	// Fetch restores a previously archived output set for hash into dir,
	// reporting whether a cache entry existed.
	Fetch(dir, hash string) (bool, error)
	// Put archives every file under dir (output paths already resolved by
	// the caller) under hash.
	Put(dir, hash string, files []string) error
}

// FSCache is a local filesystem cache rooted at a workspace's
// .moon/cache directory.
type FSCache struct {
	root string
}

// NewFSCache returns a Cache backed by the filesystem, rooted at
// <workspaceRoot>/.moon/cache.
func NewFSCache(workspaceRoot string) *FSCache {
	return &FSCache{root: filepath.Join(workspaceRoot, ".moon", "cache")}
}

func (c *FSCache) statesPath() string  { return filepath.Join(c.root, "states", "projects.json") }
func (c *FSCache) hashesDir() string   { return filepath.Join(c.root, "hashes") }
func (c *FSCache) runsDir() string     { return filepath.Join(c.root, "runs") }
func (c *FSCache) outputsDir() string  { return filepath.Join(c.root, "outputs") }

// CacheProjectsState loads (or initializes) the projects-state cache.
func (c *FSCache) CacheProjectsState() (*ProjectsState, error) {
	path := c.statesPath()
	state := &ProjectsState{Projects: map[string]string{}, path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}
	state.path = path
	if state.Projects == nil {
		state.Projects = map[string]string{}
	}
	return state, nil
}

// CreateHashManifest writes .moon/cache/hashes/<hash>.json.
func (c *FSCache) CreateHashManifest(hash string, payload interface{}) error {
	return writeJSON(filepath.Join(c.hashesDir(), hash+".json"), payload)
}

// CreateJSONReport writes .moon/cache/runs/<name>.json.
func (c *FSCache) CreateJSONReport(name string, payload interface{}) error {
	return writeJSON(filepath.Join(c.runsDir(), name+".json"), payload)
}

// Fetch restores hash's archived outputs into dir, mirroring fsCache.Fetch:
// bail out cleanly if the entry doesn't exist, otherwise recursively copy
// it into position.
func (c *FSCache) Fetch(dir, hash string) (bool, error) {
	cached := filepath.Join(c.outputsDir(), hash)
	if _, err := os.Stat(cached); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	if err := fsutil.RecursiveCopy(cached, dir, 0644); err != nil {
		return false, fmt.Errorf("restoring cached outputs for %s into %s: %w", hash, dir, err)
	}
	return true, nil
}

// Put archives files (absolute paths under dir) into the outputs cache
// under hash, mirroring fsCache.Put's worker-pool fan-out over
// golang.org/x/sync/errgroup.
func (c *FSCache) Put(dir, hash string, files []string) error {
	g := new(errgroup.Group)
	fileQueue := make(chan string, len(files))

	workers := 4
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for file := range fileQueue {
				rel, err := filepath.Rel(dir, file)
				if err != nil {
					return fmt.Errorf("computing relative path from %s to %s: %w", dir, file, err)
				}

				info, err := os.Stat(file)
				if err != nil {
					return err
				}
				if info.IsDir() {
					continue
				}

				dest := filepath.Join(c.outputsDir(), hash, rel)
				if err := fsutil.CopyFile(file, dest, info.Mode()); err != nil {
					return fmt.Errorf("archiving %s: %w", file, err)
				}
			}
			return nil
		})
	}

	for _, f := range files {
		fileQueue <- f
	}
	close(fileQueue)

	return g.Wait()
}

// NoopCache disables caching entirely: every fetch misses, every put is
// discarded. run.Execute uses it when --force is set.
type NoopCache struct{}

func NewNoopCache() *NoopCache { return &NoopCache{} }

func (c *NoopCache) CacheProjectsState() (*ProjectsState, error) {
	return &ProjectsState{Projects: map[string]string{}}, nil
}
func (c *NoopCache) CreateHashManifest(string, interface{}) error { return nil }
func (c *NoopCache) CreateJSONReport(string, interface{}) error  { return nil }
func (c *NoopCache) Fetch(string, string) (bool, error)          { return false, nil }
func (c *NoopCache) Put(string, string, []string) error          { return nil }

func writeJSON(path string, payload interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), fsutil.DirPermissions); err != nil {
		return err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// sortedKeys returns m's keys in sorted order. Nothing in this package
// calls it; the graph hasher in internal/projectgraph has its own copy.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
