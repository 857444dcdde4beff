// Package project implements the Project node of the project graph:
// its identity, filesystem location, detected language, the config
// merged from C3, its declared dependencies, and the task map it owns.
//
// Grounded on original_source's project_builder.rs (Project::new,
// get_dependency_ids, the create_project flow) and nextgen/config/src/types.rs
// for the ProjectsSourcesMap / ProjectsAliasesMap shapes, generalized into
// Go maps.
package project

import (
	"path/filepath"
	"sort"

	"github.com/ontools/moonrun/internal/inheritedtasks"
	"github.com/ontools/moonrun/internal/task"
	"github.com/ontools/moonrun/internal/util"
)

// DepScope distinguishes an explicitly declared dependency from one
// inferred by a platform plug-in; explicit always wins on collision.
type DepScope string

const (
	DepExplicit DepScope = "explicit"
	DepImplicit DepScope = "implicit"
)

// DepConfig is one entry of Project.Dependencies.
type DepConfig struct {
	Id    string
	Scope DepScope
}

// Config is the project-level configuration read from its own config file
// (project.yml-equivalent): declared dependencies, tags, env, language,
// project type and platform overrides, plus the project-local task table
// that takes precedence over anything C3 infers.
type Config struct {
	Language    util.LanguageType
	Type        util.ProjectType
	Platform    util.PlatformType
	Tags        []string
	Env         map[string]string
	Dependencies map[string]DepScope
	Tasks       map[string]task.Config
}

// Project is one node of the ProjectGraph.
type Project struct {
	Id     string
	Alias  string // empty if none
	Source string // workspace-relative
	Root   string // absolute

	Language util.LanguageType
	Config   Config

	InheritedConfig *inheritedtasks.InheritedConfig

	Dependencies map[string]DepConfig
	Tasks        map[string]*task.Task
	Tags         []string
}

// New constructs a Project from its source directory, mirroring
// Project::new: resolve the absolute root, seed dependencies/tags/env from
// cfg, and leave tasks to be populated by the caller (create_project merges
// in C3's output before assigning tasks).
func New(id, source, workspaceRoot string, cfg Config) *Project {
	root := workspaceRoot
	if source != "." && source != "" {
		root = filepath.Join(workspaceRoot, source)
	}

	language := cfg.Language
	if language == "" {
		language = util.LanguageUnknown
	}

	deps := map[string]DepConfig{}
	for depID, scope := range cfg.Dependencies {
		deps[depID] = DepConfig{Id: depID, Scope: scope}
	}

	return &Project{
		Id:           id,
		Source:       source,
		Root:         root,
		Language:     language,
		Config:       cfg,
		Dependencies: deps,
		Tasks:        map[string]*task.Task{},
		Tags:         append([]string(nil), cfg.Tags...),
	}
}

// GetDependencyIds returns the project's dependency ids in deterministic
// (sorted) order, mirroring get_dependency_ids used by expand_task_deps'
// `^:task` (Deps scope) expansion and internal_load's recursive walk.
func (p *Project) GetDependencyIds() []string {
	ids := make([]string, 0, len(p.Dependencies))
	for id := range p.Dependencies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AddImplicitDependency inserts dep only if no explicit (or prior implicit)
// entry already exists for that id, matching create_project's "implicit
// must not override explicit" rule.
func (p *Project) AddImplicitDependency(depID string) {
	if _, exists := p.Dependencies[depID]; exists {
		return
	}
	p.Dependencies[depID] = DepConfig{Id: depID, Scope: DepImplicit}
}

// AddInferredTask inserts t only if no task with that id is already
// present, matching create_project's "inferred must not override explicit"
// rule for platform-provided tasks.
func (p *Project) AddInferredTask(id string, t *task.Task) {
	if _, exists := p.Tasks[id]; exists {
		return
	}
	p.Tasks[id] = t
}

// HasTag reports whether tag is one of this project's declared tags.
func (p *Project) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
