package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ontools/moonrun/internal/inheritedtasks"
	"github.com/ontools/moonrun/internal/task"
	"github.com/ontools/moonrun/internal/util"
)

// rawInheritedConfig is the on-disk shape of .moon/tasks.yml and
// .moon/tasks/<lookup>.yml: the same per-task shape a project's own config
// uses, plus the workspace-level file-group and implicit dependency/input
// fields a project config doesn't carry.
type rawInheritedConfig struct {
	FileGroups     map[string][]string `yaml:"fileGroups"`
	ImplicitDeps   []string            `yaml:"implicitDeps"`
	ImplicitInputs []string            `yaml:"implicitInputs"`
	Tasks          map[string]rawTask  `yaml:"tasks"`
}

// LoadInheritedTasksConfig parses one inherited-tasks config file into the
// Inherited Tasks Manager's registration unit.
func LoadInheritedTasksConfig(path string) (inheritedtasks.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return inheritedtasks.Config{}, err
	}

	var raw rawInheritedConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return inheritedtasks.Config{}, fmt.Errorf("parsing inherited tasks config %q: %w", path, err)
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

	return inheritedtasks.Config{
		FileGroups:     raw.FileGroups,
		ImplicitDeps:   decodeTargets(raw.ImplicitDeps),
		ImplicitInputs: raw.ImplicitInputs,
		Tasks:          tasks,
	}, nil
}

// LoadInheritedTasksManager reads .moon/tasks.yml (the "*" lookup) and
// every .moon/tasks/<lookup>.yml file, registering each with the
// Inherited Tasks Manager under the lookup name AddConfig derives from its
// file name. A workspace with neither is valid — every project falls back
// to its own project-local tasks only.
func LoadInheritedTasksManager(workspaceRoot string) (*inheritedtasks.Manager, error) {
	m := inheritedtasks.NewManager()

	root := filepath.Join(workspaceRoot, ".moon", "tasks.yml")
	if cfg, err := LoadInheritedTasksConfig(root); err == nil {
		m.AddConfig(root, cfg)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	dir := filepath.Join(workspaceRoot, ".moon", "tasks")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, err
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		cfg, err := LoadInheritedTasksConfig(path)
		if err != nil {
			return nil, err
		}
		m.AddConfig(path, cfg)
	}

	return m, nil
}
