// Package platform implements the workspace "platforms" contract: the
// iterable of plug-ins the Project Graph Builder consults for
// language/project detection, graph alias discovery, implicit
// dependency inference, and platform-provided task injection.
//
// The plugin ABI itself (dynamic loading of third-party plug-ins) is out
// of scope; what's implemented here are the built-in plug-ins a real
// deployment would ship, expressed against the same interface a plugin
// author would target.
package platform

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ontools/moonrun/internal/task"
	"github.com/ontools/moonrun/internal/util"
)

// Platform is one plug-in in the workspace's platforms contract.
type Platform interface {
	// Language reports the language this plug-in claims.
	Language() util.LanguageType
	// Kind reports the platform identity tasks inherit.
	Kind() util.PlatformType
	// Matches reports whether projectRoot looks like it belongs to this
	// platform (e.g. a package.json for Node).
	Matches(projectRoot string) bool
	// LoadAlias inspects projectRoot for a platform-native name distinct
	// from the project's workspace id (e.g. package.json's "name" field),
	// returning "" if none is found.
	LoadAlias(projectRoot string) string
	// LoadImplicitDependencies returns dependency ids this plug-in infers
	// from native manifest references (e.g. package.json dependencies
	// that resolve to another workspace project's alias).
	LoadImplicitDependencies(projectRoot string, aliasToID map[string]string) []string
	// LoadTasks returns platform-inferred tasks, keyed by task id, for
	// projectRoot. Explicit project-local tasks of the same id always win.
	LoadTasks(projectRoot string) map[string]task.Config
}

// Registry holds every registered plug-in, consulted in registration
// order; the first Matches wins for language detection purposes.
type Registry struct {
	platforms []Platform
}

// NewRegistry builds a registry seeded with the built-in plug-ins.
func NewRegistry(extra ...Platform) *Registry {
	r := &Registry{}
	r.platforms = append(r.platforms, &NodePlatform{}, &GoPlatform{})
	r.platforms = append(r.platforms, extra...)
	r.platforms = append(r.platforms, &SystemPlatform{})
	return r
}

// Get returns the plug-in claiming language, nil if none is registered.
func (r *Registry) Get(language util.LanguageType) Platform {
	for _, p := range r.platforms {
		if p.Language() == language {
			return p
		}
	}
	return nil
}

// Detect returns the first plug-in whose Matches reports true for
// projectRoot, falling back to SystemPlatform (which matches everything).
func (r *Registry) Detect(projectRoot string) Platform {
	for _, p := range r.platforms {
		if p.Matches(projectRoot) {
			return p
		}
	}
	return &SystemPlatform{}
}

// List returns every registered plug-in, detection order.
func (r *Registry) List() []Platform {
	return append([]Platform(nil), r.platforms...)
}

// NodePlatform claims projects carrying a package.json.
type NodePlatform struct{}

func (NodePlatform) Language() util.LanguageType { return util.LanguageJavaScript }
func (NodePlatform) Kind() util.PlatformType      { return util.PlatformNode }

func (NodePlatform) Matches(projectRoot string) bool {
	_, err := os.Stat(filepath.Join(projectRoot, "package.json"))
	return err == nil
}

type packageJSON struct {
	Name         string            `json:"name"`
	Scripts      map[string]string `json:"scripts"`
	Dependencies map[string]string `json:"dependencies"`
}

func readPackageJSON(projectRoot string) (*packageJSON, bool) {
	data, err := os.ReadFile(filepath.Join(projectRoot, "package.json"))
	if err != nil {
		return nil, false
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, false
	}
	return &pkg, true
}

func (NodePlatform) LoadAlias(projectRoot string) string {
	pkg, ok := readPackageJSON(projectRoot)
	if !ok {
		return ""
	}
	return pkg.Name
}

func (NodePlatform) LoadImplicitDependencies(projectRoot string, aliasToID map[string]string) []string {
	pkg, ok := readPackageJSON(projectRoot)
	if !ok {
		return nil
	}
	var deps []string
	for depName := range pkg.Dependencies {
		if id, found := aliasToID[depName]; found {
			deps = append(deps, id)
		}
	}
	return deps
}

func (NodePlatform) LoadTasks(projectRoot string) map[string]task.Config {
	pkg, ok := readPackageJSON(projectRoot)
	if !ok {
		return nil
	}
	out := make(map[string]task.Config, len(pkg.Scripts))
	for name := range pkg.Scripts {
		out[name] = task.Config{
			Command: task.CommandArgs{Sequence: []string{"npm", "run", name}},
			Options: task.DefaultOptions(),
			Platform: util.PlatformNode,
		}
	}
	return out
}

// GoPlatform claims projects carrying a go.mod.
type GoPlatform struct{}

func (GoPlatform) Language() util.LanguageType { return util.LanguageGo }
func (GoPlatform) Kind() util.PlatformType      { return util.PlatformGo }

func (GoPlatform) Matches(projectRoot string) bool {
	_, err := os.Stat(filepath.Join(projectRoot, "go.mod"))
	return err == nil
}

func (GoPlatform) LoadAlias(projectRoot string) string {
	data, err := os.ReadFile(filepath.Join(projectRoot, "go.mod"))
	if err != nil {
		return ""
	}
	return parseGoModulePath(string(data))
}

func parseGoModulePath(contents string) string {
	const prefix = "module "
	for _, line := range splitLines(contents) {
		if len(line) > len(prefix) && line[:len(prefix)] == prefix {
			return line[len(prefix):]
		}
	}
	return ""
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}

func (GoPlatform) LoadImplicitDependencies(string, map[string]string) []string { return nil }

func (GoPlatform) LoadTasks(projectRoot string) map[string]task.Config {
	return map[string]task.Config{
		"build": {
			Command:  task.CommandArgs{Sequence: []string{"go", "build", "./..."}},
			Options:  task.DefaultOptions(),
			Platform: util.PlatformGo,
		},
		"test": {
			Command:  task.CommandArgs{Sequence: []string{"go", "test", "./..."}},
			Options:  task.DefaultOptions(),
			Platform: util.PlatformGo,
		},
	}
}

// SystemPlatform is the fallback plug-in: it matches every project but
// infers nothing, the platform equivalent of "unknown".
type SystemPlatform struct{}

func (SystemPlatform) Language() util.LanguageType                                     { return util.LanguageUnknown }
func (SystemPlatform) Kind() util.PlatformType                                          { return util.PlatformSystem }
func (SystemPlatform) Matches(string) bool                                              { return true }
func (SystemPlatform) LoadAlias(string) string                                          { return "" }
func (SystemPlatform) LoadImplicitDependencies(string, map[string]string) []string      { return nil }
func (SystemPlatform) LoadTasks(string) map[string]task.Config                          { return nil }
