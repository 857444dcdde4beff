// Package task implements the Task Model (C2): the TaskConfig input shape
// and the expanded, immutable-after-expansion Task owned by a Project.
// Grounded on original_source's crates/core/task/src/task.rs and
// nextgen/config/src/project/task_config.rs.
package task

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/ontools/moonrun/internal/target"
	"github.com/ontools/moonrun/internal/util"
)

// CommandArgs models the "none|string|sequence" shape shared by a
// TaskConfig's command and args fields.
type CommandArgs struct {
	None     bool
	String   string
	Sequence []string
}

// IsEmpty reports the None variant.
func (c CommandArgs) IsEmpty() bool { return c.None }

// split tokenizes a CommandArgs into a flat argument list, splitting a
// String variant on whitespace the way a shell would for a simple command.
func (c CommandArgs) split() []string {
	switch {
	case c.None:
		return nil
	case c.String != "":
		return strings.Fields(c.String)
	default:
		return append([]string(nil), c.Sequence...)
	}
}

// TaskType distinguishes build/run/test tasks, the way determine_type
// assigns it after expansion.
type TaskType string

const (
	TypeBuild TaskType = "build"
	TypeRun   TaskType = "run"
	TypeTest  TaskType = "test"
)

// MergeStrategy controls how InheritedTasksManager / Project task overrides
// combine a base value with an override value.
type MergeStrategy string

const (
	MergeAppend  MergeStrategy = "append"
	MergePrepend MergeStrategy = "prepend"
	MergeReplace MergeStrategy = "replace"
)

// Options mirrors TaskOptionsConfig: the small bag of behavioral flags a
// task can set.
type Options struct {
	EnvFile             string
	RunFromWorkspaceRoot bool
	Persistent          bool
	RunInCI             bool
	MergeArgs           MergeStrategy
	MergeDeps           MergeStrategy
	MergeEnv            MergeStrategy
	MergeInputs         MergeStrategy
	MergeOutputs        MergeStrategy
}

// DefaultOptions returns the zero-value defaults used when a TaskConfig
// doesn't set options explicitly.
func DefaultOptions() Options {
	return Options{
		RunInCI:     true,
		MergeArgs:   MergeAppend,
		MergeDeps:   MergeAppend,
		MergeEnv:    MergeAppend,
		MergeInputs: MergeAppend,
		MergeOutputs: MergeAppend,
	}
}

// Config is the TaskConfig input shape: command, args, deps, env,
// optional inputs/outputs (nil = all/unset, empty slice = none), options,
// platform and type.
type Config struct {
	Command  CommandArgs
	Args     CommandArgs
	Deps     []target.Target
	Env      map[string]string
	Inputs   *[]string // nil = Some(all)/unset per caller; an empty slice sets FlagNoInputs in FromConfig
	Outputs  *[]string
	Options  Options
	Platform util.PlatformType
	Type     *TaskType
	Local    bool

	// GlobalInputs carries lookup-name-derived global inputs injected by
	// the Inherited Tasks Manager (e.g. "/.moon/tasks/node.yml") before
	// this config ever reaches a project's task expansion.
	GlobalInputs []string
}

// ValidateCommand enforces the rule from task_config.rs's validate_command:
// an empty command string is illegal; "noop" is the documented sentinel for
// "do nothing".
func ValidateCommand(c CommandArgs) error {
	switch {
	case c.None:
		return nil
	case c.String != "":
		parts := strings.SplitN(c.String, " ", 2)
		if parts[0] == "" {
			return errors.New(`a command is required; use "noop" otherwise`)
		}
		return nil
	default:
		if len(c.Sequence) == 0 || c.Sequence[0] == "" {
			return errors.New(`a command is required; use "noop" otherwise`)
		}
		return nil
	}
}

// ValidateDeps enforces that no task dependency target uses an All or Tag
// scope, per task_config.rs's validate_deps.
func ValidateDeps(deps []target.Target) error {
	for _, dep := range deps {
		if !dep.IsDependencyLegal() {
			return errors.Errorf("target scope not supported as a task dependency: %s", dep)
		}
	}
	return nil
}
