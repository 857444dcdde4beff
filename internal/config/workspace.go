// Package config implements the ambient configuration layer: the
// Workspace contract's WorkspaceConfig (projects, constraints, notifier),
// a per-user config file under the XDG config directory, and a loader that
// accepts YAML or JSON5 workspace config documents the way moon's config
// crate accepts multiple source formats.
//
// Adapted from turbo's cli/internal/config/config_file.go (the
// xdg-backed read/write pair), generalized from a single flat
// token/team-id struct into the layered workspace/user config this
// orchestrator needs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/mapstructure"
	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"

	"github.com/ontools/moonrun/internal/project"
	"github.com/ontools/moonrun/internal/target"
	"github.com/ontools/moonrun/internal/task"
	"github.com/ontools/moonrun/internal/util"
)

// WorkspaceProjectsKind distinguishes how a workspace enumerates its
// projects: an explicit id->path map, a list of glob patterns, or both.
type WorkspaceProjectsKind string

const (
	ProjectsSources WorkspaceProjectsKind = "sources"
	ProjectsGlobs   WorkspaceProjectsKind = "globs"
	ProjectsBoth    WorkspaceProjectsKind = "both"
)

// WorkspaceProjects mirrors the WorkspaceProjects enum consumed by the
// Project Graph Builder's preload step.
type WorkspaceProjects struct {
	Kind    WorkspaceProjectsKind `yaml:"-" json:"-"`
	Sources map[string]string     `yaml:"sources,omitempty" json:"sources,omitempty"`
	Globs   []string              `yaml:"globs,omitempty" json:"globs,omitempty"`
}

// Constraints mirrors the workspace constraints contract:
// project-type relationship enforcement plus a tag-relationship matrix.
type Constraints struct {
	EnforceProjectTypeRelationships bool                `yaml:"enforceProjectTypeRelationships" json:"enforceProjectTypeRelationships"`
	TagRelationships                map[string][]string `yaml:"tagRelationships,omitempty" json:"tagRelationships,omitempty"`
}

// Notifier mirrors the workspace notifier contract: an optional webhook URL
// the emitter's webhook subscriber posts events to.
type Notifier struct {
	WebhookURL string `yaml:"webhookUrl,omitempty" json:"webhookUrl,omitempty"`
}

// WorkspaceConfig is the Workspace contract's `config` field.
type WorkspaceConfig struct {
	Projects    WorkspaceProjects `yaml:"projects" json:"projects"`
	Constraints Constraints       `yaml:"constraints" json:"constraints"`
	Notifier    Notifier          `yaml:"notifier" json:"notifier"`
}

// rawWorkspaceConfig is the on-disk shape before Sources/Globs/Both
// disambiguation; yaml.v3 and json5 both unmarshal into it directly.
type rawWorkspaceConfig struct {
	Projects interface{} `yaml:"projects" json:"projects"`
	Constraints Constraints `yaml:"constraints" json:"constraints"`
	Notifier    Notifier    `yaml:"notifier" json:"notifier"`
}

// LoadWorkspaceConfig reads a workspace config document at path. A
// ".json5"/".json" extension is parsed as JSON5; every other extension is
// parsed as YAML, with no fallback to JSON5 when YAML parsing fails.
func LoadWorkspaceConfig(path string) (*WorkspaceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workspace config %q: %w", path, err)
	}

	var raw rawWorkspaceConfig
	switch filepath.Ext(path) {
	case ".json5", ".json":
		if err := json5.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing workspace config %q: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing workspace config %q: %w", path, err)
		}
	}

	cfg := &WorkspaceConfig{
		Constraints: raw.Constraints,
		Notifier:    raw.Notifier,
	}

	if err := decodeProjects(raw.Projects, &cfg.Projects); err != nil {
		return nil, fmt.Errorf("workspace config %q: %w", path, err)
	}

	return cfg, nil
}

// decodeProjects disambiguates the `projects` field: a map value is
// Sources, a list value is Globs, and an object carrying a "sources" or a
// "globs" key (or both) is Both — mirroring WorkspaceProjects' three
// variants.
func decodeProjects(raw interface{}, out *WorkspaceProjects) error {
	switch v := raw.(type) {
	case nil:
		out.Kind = ProjectsSources
		return nil
	case []interface{}:
		globs := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return fmt.Errorf("projects globs entry must be a string, got %T", e)
			}
			globs = append(globs, s)
		}
		out.Kind = ProjectsGlobs
		out.Globs = globs
		return nil
	case map[string]interface{}:
		_, hasSources := v["sources"]
		_, hasGlobs := v["globs"]
		if hasSources || hasGlobs {
			var both struct {
				Sources map[string]string `mapstructure:"sources"`
				Globs   []string          `mapstructure:"globs"`
			}
			if err := mapstructure.Decode(v, &both); err != nil {
				return err
			}
			out.Kind = ProjectsBoth
			out.Sources = both.Sources
			out.Globs = both.Globs
			return nil
		}

		sources := make(map[string]string, len(v))
		for k, val := range v {
			s, ok := val.(string)
			if !ok {
				return fmt.Errorf("projects.%s must be a string path, got %T", k, val)
			}
			sources[k] = s
		}
		out.Kind = ProjectsSources
		out.Sources = sources
		return nil
	default:
		return fmt.Errorf("unsupported projects shape %T", raw)
	}
}

// rawProjectConfig is the on-disk shape of a single project's own config
// file: language/type/platform overrides, its declared tags and env, the
// dependency ids it depends on, and its project-local task table.
type rawProjectConfig struct {
	Language     string                 `yaml:"language"`
	Type         string                 `yaml:"type"`
	Platform     string                 `yaml:"platform"`
	Tags         []string               `yaml:"tags"`
	Env          map[string]string      `yaml:"env"`
	Dependencies []string               `yaml:"dependsOn"`
	Tasks        map[string]rawTask     `yaml:"tasks"`
}

type rawTask struct {
	Command  interface{}       `yaml:"command"`
	Args     interface{}       `yaml:"args"`
	Deps     []string          `yaml:"deps"`
	Env      map[string]string `yaml:"env"`
	Inputs   *[]string         `yaml:"inputs"`
	Outputs  *[]string         `yaml:"outputs"`
	Platform string            `yaml:"platform"`
	Local    bool              `yaml:"local"`
	Options  *rawTaskOptions   `yaml:"options"`
}

type rawTaskOptions struct {
	EnvFile              string `yaml:"envFile"`
	RunFromWorkspaceRoot bool   `yaml:"runFromWorkspaceRoot"`
	Persistent           bool   `yaml:"persistent"`
	RunInCI              *bool  `yaml:"runInCI"`
	MergeArgs            string `yaml:"mergeArgs"`
	MergeDeps            string `yaml:"mergeDeps"`
	MergeEnv             string `yaml:"mergeEnv"`
	MergeInputs          string `yaml:"mergeInputs"`
	MergeOutputs         string `yaml:"mergeOutputs"`
}

func decodeOptions(raw *rawTaskOptions) task.Options {
	opts := task.DefaultOptions()
	if raw == nil {
		return opts
	}
	opts.EnvFile = raw.EnvFile
	opts.RunFromWorkspaceRoot = raw.RunFromWorkspaceRoot
	opts.Persistent = raw.Persistent
	if raw.RunInCI != nil {
		opts.RunInCI = *raw.RunInCI
	}
	if s := task.MergeStrategy(raw.MergeArgs); s != "" {
		opts.MergeArgs = s
	}
	if s := task.MergeStrategy(raw.MergeDeps); s != "" {
		opts.MergeDeps = s
	}
	if s := task.MergeStrategy(raw.MergeEnv); s != "" {
		opts.MergeEnv = s
	}
	if s := task.MergeStrategy(raw.MergeInputs); s != "" {
		opts.MergeInputs = s
	}
	if s := task.MergeStrategy(raw.MergeOutputs); s != "" {
		opts.MergeOutputs = s
	}
	return opts
}

// LoadProjectConfig loads one project's own config file into
// project.Config, using the shared yaml.v3 decoder the same way
// LoadWorkspaceConfig does. A missing file is not an error: a project may
// rely entirely on inherited task configuration.
func LoadProjectConfig(path string) (project.Config, error) {
	var raw rawProjectConfig

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return project.Config{
			Dependencies: map[string]project.DepScope{},
			Tasks:        map[string]task.Config{},
		}, nil
	}
	if err != nil {
		return project.Config{}, err
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return project.Config{}, fmt.Errorf("parsing project config %q: %w", path, err)
	}

	deps := make(map[string]project.DepScope, len(raw.Dependencies))
	for _, id := range raw.Dependencies {
		deps[id] = project.DepExplicit
	}

	tasks := make(map[string]task.Config, len(raw.Tasks))
	for id, rt := range raw.Tasks {
		tasks[id] = task.Config{
			Command:  decodeCommandArgs(rt.Command),
			Args:     decodeCommandArgs(rt.Args),
			Deps:     decodeTargets(rt.Deps),
			Env:      rt.Env,
			Inputs:   rt.Inputs,
			Outputs:  rt.Outputs,
			Options:  decodeOptions(rt.Options),
			Platform: util.PlatformType(rt.Platform),
			Local:    rt.Local,
		}
	}

	return project.Config{
		Language:     util.LanguageType(raw.Language),
		Type:         util.ProjectType(raw.Type),
		Platform:     util.PlatformType(raw.Platform),
		Tags:         raw.Tags,
		Env:          raw.Env,
		Dependencies: deps,
		Tasks:        tasks,
	}, nil
}

func decodeCommandArgs(raw interface{}) task.CommandArgs {
	switch v := raw.(type) {
	case nil:
		return task.CommandArgs{None: true}
	case string:
		return task.CommandArgs{String: v}
	case []interface{}:
		seq := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				seq = append(seq, s)
			}
		}
		return task.CommandArgs{Sequence: seq}
	default:
		return task.CommandArgs{None: true}
	}
}

func decodeTargets(raw []string) []target.Target {
	out := make([]target.Target, 0, len(raw))
	for _, s := range raw {
		if t, err := target.Parse(s); err == nil {
			out = append(out, t)
		}
	}
	return out
}
