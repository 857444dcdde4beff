// Package inheritedtasks implements the Inherited Tasks Manager (C3): a
// registry of workspace-level tasks configs keyed by lookup name ("*", a
// platform, a language, "platform-project_type", "language-project_type",
// "tag-<tag>"), merged in deterministic order to produce a resolved
// InheritedConfig for a given (platform, language, project type, tags).
//
// Grounded on original_source's
// nextgen/config/src/inherited_tasks_config.rs (InheritedTasksManager,
// get_lookup_order, get_inherited_config).
package inheritedtasks

import (
	"fmt"
	"path"
	"strings"

	"github.com/ontools/moonrun/internal/errs"
	"github.com/ontools/moonrun/internal/id"
	"github.com/ontools/moonrun/internal/target"
	"github.com/ontools/moonrun/internal/task"
	"github.com/ontools/moonrun/internal/util"
)

// Config is one registered entry: a partial set of workspace-level task
// defaults, the unit add_config stores under a lookup key.
type Config struct {
	FileGroups    map[string][]string
	ImplicitDeps  []target.Target
	ImplicitInputs []string
	Tasks         map[string]task.Config
}

// InheritedConfig is the fully merged result handed to a project's
// create_project step.
type InheritedConfig struct {
	FileGroups    map[string][]string
	ImplicitDeps  []target.Target
	ImplicitInputs []string
	Tasks         map[string]task.Config
}

// Manager holds every registered config, keyed by its lookup name.
type Manager struct {
	configs map[string]Config
}

// NewManager returns an empty manager ready for AddConfig calls.
func NewManager() *Manager {
	return &Manager{configs: map[string]Config{}}
}

// AddConfig registers cfg under the lookup name derived from configPath's
// file name: "tasks.yml" (the root file) maps to "*"; any other
// "<name>.yml" maps to "<name>" (e.g. "node.yml" -> "node", "tag-frontend.yml"
// -> "tag-frontend").
func (m *Manager) AddConfig(configPath string, cfg Config) {
	name := path.Base(configPath)
	switch {
	case name == "tasks.yml":
		name = "*"
	case strings.HasSuffix(name, ".yml"):
		name = strings.TrimSuffix(name, ".yml")
	}
	m.configs[name] = cfg
}

// GetLookupOrder computes the deterministic merge order for
// (platform, language, projectType, tags),
func GetLookupOrder(platform util.PlatformType, language util.LanguageType, projectType util.ProjectType, tags []string) []string {
	lookup := []string{"*"}

	if platform.IsJSFamily() {
		lookup = append(lookup, platform.String())
	}

	lookup = append(lookup, language.String())

	if platform.IsJSFamily() {
		lookup = append(lookup, fmt.Sprintf("%s-%s", platform, projectType))
	}

	lookup = append(lookup, fmt.Sprintf("%s-%s", language, projectType))

	for _, tag := range tags {
		lookup = append(lookup, "tag-"+tag)
	}

	return lookup
}

// GetInheritedConfig merges every registered config found along the lookup
// order into a single InheritedConfig, per get_inherited_config: for each
// non-"*" entry, every task in that entry gets its lookup name appended as
// a global input and, if it has no platform yet, the resolved platform
// assigned.
func (m *Manager) GetInheritedConfig(platform util.PlatformType, language util.LanguageType, projectType util.ProjectType, tags []string) (*InheritedConfig, error) {
	acc := &InheritedConfig{
		FileGroups: map[string][]string{},
		Tasks:      map[string]task.Config{},
	}

	for _, lookup := range GetLookupOrder(platform, language, projectType, tags) {
		cfg, ok := m.configs[lookup]
		if !ok {
			continue
		}

		for k, v := range cfg.FileGroups {
			acc.FileGroups[k] = v // shallow map overwrite, later wins per key
		}

		acc.ImplicitDeps = append(acc.ImplicitDeps, cfg.ImplicitDeps...)
		acc.ImplicitInputs = append(acc.ImplicitInputs, cfg.ImplicitInputs...)

		for taskID, t := range cfg.Tasks {
			if lookup != "*" {
				globalLookup := fmt.Sprintf("/.moon/tasks/%s.yml", lookup)
				injected := t
				injected.GlobalInputs = append(append([]string(nil), t.GlobalInputs...), globalLookup)
				if injected.Platform.IsUnknown() {
					injected.Platform = platform
				}
				t = injected
			}
			if existing, ok := acc.Tasks[taskID]; ok {
				merged, err := mergeTaskConfigs(taskID, existing, t)
				if err != nil {
					return nil, &errs.TaskValidationError{
						Context: fmt.Sprintf("merging inherited task %q", taskID),
						Cause:   err,
					}
				}
				t = merged
			}
			acc.Tasks[taskID] = t
		}
	}

	if err := finalizeAndValidate(acc); err != nil {
		return nil, &errs.TaskValidationError{
			Context: fmt.Sprintf("(%s, %s, %s)", platform, language, projectType),
			Cause:   err,
		}
	}

	return acc, nil
}

// mergeTaskConfigs combines overlay into base field by field, the "nested
// merge per task id" a later lookup level (a more specific platform/
// project-type/tag config) applies over an earlier, less specific one —
// as opposed to replacing the whole task wholesale, which would silently
// drop base's command/inputs/options whenever a later level only meant to
// add a dependency or an env var. Goes through task.Task.Merge, the same
// field-by-field strategy a project-local task config uses to override an
// inherited one, rather than duplicating that logic here.
func mergeTaskConfigs(taskID string, base, overlay task.Config) (task.Config, error) {
	tgt := target.NewOwnSelf(id.Id(taskID))
	t, err := task.FromConfig(tgt, base)
	if err != nil {
		return task.Config{}, err
	}
	t.Merge(overlay)

	merged := t.ToConfig()
	// ToConfig doesn't round-trip GlobalInputs (a Manager-only concern, not
	// part of the expanded Task); carry forward both levels' entries so a
	// task merged across several lookup levels still breaks cache on every
	// one of its ancestors' config files, not just the most specific.
	merged.GlobalInputs = append(append([]string(nil), base.GlobalInputs...), overlay.GlobalInputs...)
	return merged, nil
}

// finalizeAndValidate runs the same per-task validation create_project
// would otherwise discover lazily at expansion time, surfacing bad
// inherited task configuration as early as possible.
func finalizeAndValidate(cfg *InheritedConfig) error {
	for id, t := range cfg.Tasks {
		if err := task.ValidateCommand(t.Command); err != nil {
			return fmt.Errorf("task %q: %w", id, err)
		}
		if err := task.ValidateDeps(t.Deps); err != nil {
			return fmt.Errorf("task %q: %w", id, err)
		}
	}
	return nil
}
