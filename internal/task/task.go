package task

import (
	"fmt"
	"os"
	"sort"

	"github.com/gobwas/glob"
	mapset "github.com/deckarep/golang-set"

	"github.com/ontools/moonrun/internal/id"
	"github.com/ontools/moonrun/internal/target"
	"github.com/ontools/moonrun/internal/util"
)

// Flag is a member of Task.Flags ("flags (set containing e.g.
// NoInputs)").
type Flag string

const (
	// FlagNoInputs marks a task whose inputs were explicitly configured as
	// Some([]) — no inputs at all, but always considered affected.
	FlagNoInputs Flag = "no-inputs"
)

// Task is the expanded, owned-by-its-Project runnable unit.
// It is treated as immutable once expand_project has run.
type Task struct {
	Id       id.Id
	Target   target.Target
	Command  string
	Args     []string
	Deps     []target.Target
	Env      map[string]string
	Flags    mapset.Set
	Options  Options
	Platform util.PlatformType
	TypeOf   TaskType

	Inputs      []string // post-partition: plain input patterns (no $VAR entries)
	InputVars   mapset.Set
	InputPaths  mapset.Set // workspace-relative absolute paths
	InputGlobs  mapset.Set // workspace-relative glob patterns
	GlobalInputs []string

	Outputs     []string
	OutputPaths mapset.Set
	OutputGlobs mapset.Set

	LogTarget string
}

// FromConfig builds a Task from a TaskConfig, mirroring task.rs's
// Task::from_config: split command/args, default command to "noop", assign
// is_local-derived type, and set the NoInputs flag when inputs was
// explicitly Some([]).
func FromConfig(tgt target.Target, cfg Config) (*Task, error) {
	if err := ValidateCommand(cfg.Command); err != nil {
		return nil, err
	}
	if err := ValidateDeps(cfg.Deps); err != nil {
		return nil, err
	}

	cmdParts := cfg.Command.split()
	argParts := cfg.Args.split()

	command := "noop"
	var args []string
	if len(cmdParts) > 0 {
		command = cmdParts[0]
		args = append(args, cmdParts[1:]...)
	}
	args = append(args, argParts...)

	isLocal := cfg.Local || command == "dev" || command == "serve" || command == "start"

	typeOf := TypeTest
	if isLocal {
		typeOf = TypeRun
	}
	if cfg.Type != nil {
		typeOf = *cfg.Type
	}

	env := map[string]string{}
	for k, v := range cfg.Env {
		env[k] = v
	}

	var inputs []string
	if cfg.Inputs != nil {
		inputs = append(inputs, (*cfg.Inputs)...)
	}

	var outputs []string
	if cfg.Outputs != nil {
		outputs = append(outputs, (*cfg.Outputs)...)
	}

	t := &Task{
		Id:           tgt.TaskID,
		Target:       tgt,
		Command:      command,
		Args:         args,
		Deps:         append([]target.Target(nil), cfg.Deps...),
		Env:          env,
		Flags:        mapset.NewSet(),
		Options:      cfg.Options,
		Platform:     cfg.Platform,
		TypeOf:       typeOf,
		Inputs:       inputs,
		InputVars:    mapset.NewSet(),
		InputPaths:   mapset.NewSet(),
		InputGlobs:   mapset.NewSet(),
		GlobalInputs: nil,
		Outputs:      outputs,
		OutputPaths:  mapset.NewSet(),
		OutputGlobs:  mapset.NewSet(),
		LogTarget:    fmt.Sprintf("moon:project:%s", tgt.Scope.ProjectID),
	}

	if cfg.Inputs != nil && len(*cfg.Inputs) == 0 {
		t.Flags.Add(FlagNoInputs)
	}

	return t, nil
}

// ToConfig reconstructs a TaskConfig from the expanded Task's observable
// fields, the inverse of FromConfig.
func (t *Task) ToConfig() Config {
	seq := append([]string{t.Command}, t.Args...)
	cfg := Config{
		Command: CommandArgs{Sequence: seq},
		Options: t.Options,
	}

	if len(t.Deps) > 0 {
		cfg.Deps = append([]target.Target(nil), t.Deps...)
	}
	if len(t.Env) > 0 {
		cfg.Env = map[string]string{}
		for k, v := range t.Env {
			cfg.Env[k] = v
		}
	}
	if len(t.Inputs) > 0 {
		in := append([]string(nil), t.Inputs...)
		cfg.Inputs = &in
	}
	if len(t.Outputs) > 0 {
		out := append([]string(nil), t.Outputs...)
		cfg.Outputs = &out
	}
	if !t.Platform.IsUnknown() {
		cfg.Platform = t.Platform
	}
	return cfg
}

// DetermineType runs after expansion: a non-empty outputs list promotes the
// task to Build, per task.rs's determine_type.
func (t *Task) DetermineType() {
	if len(t.Outputs) > 0 {
		t.TypeOf = TypeBuild
	}
}

// IsPersistent reports the "persistent task" glossary entry.
func (t *Task) IsPersistent() bool { return t.Options.Persistent }

// IsNoOp reports whether the task's command is the documented sentinel.
func (t *Task) IsNoOp() bool {
	return t.Command == "noop" || t.Command == "nop" || t.Command == "no-op"
}

// IsBuildType, IsRunType, IsTestType mirror task.rs's matches!() helpers.
func (t *Task) IsBuildType() bool { return t.TypeOf == TypeBuild }
func (t *Task) IsRunType() bool   { return t.TypeOf == TypeRun }
func (t *Task) IsTestType() bool  { return t.TypeOf == TypeTest }

// ShouldRunInCI mirrors task.rs's should_run_in_ci.
func (t *Task) ShouldRunInCI() bool {
	if !t.Options.RunInCI {
		return false
	}
	return t.IsBuildType() || t.IsTestType()
}

// globSet lazily compiles InputGlobs/OutputGlobs into matchers, the Go
// analogue of task.rs's create_globset/starbase_utils::glob::GlobSet.
type globSet struct {
	inputs  []glob.Glob
	outputs []glob.Glob
}

// CreateGlobSet compiles the task's input and output globs.
func (t *Task) CreateGlobSet() (*globSet, error) {
	gs := &globSet{}
	for v := range t.InputGlobs.Iter() {
		g, err := glob.Compile(v.(string), '/')
		if err != nil {
			return nil, fmt.Errorf("task %s: invalid input glob %q: %w", t.Target, v, err)
		}
		gs.inputs = append(gs.inputs, g)
	}
	for v := range t.OutputGlobs.Iter() {
		g, err := glob.Compile(v.(string), '/')
		if err != nil {
			return nil, fmt.Errorf("task %s: invalid output glob %q: %w", t.Target, v, err)
		}
		gs.outputs = append(gs.outputs, g)
	}
	return gs, nil
}

// Matches reports whether file (workspace-relative) matches any input glob.
func (gs *globSet) Matches(file string) bool {
	for _, g := range gs.inputs {
		if g.Match(file) {
			return true
		}
	}
	return false
}

// IsAffected implements the "Affected" glossary entry: NoInputs flag short
// circuits true; then any non-empty input var set in the environment; then
// touched-file intersection against InputPaths/InputGlobs.
func (t *Task) IsAffected(touchedFiles mapset.Set) (bool, error) {
	if t.Flags.Contains(FlagNoInputs) {
		return true, nil
	}

	for v := range t.InputVars.Iter() {
		if val := os.Getenv(v.(string)); val != "" {
			return true, nil
		}
	}

	gs, err := t.CreateGlobSet()
	if err != nil {
		return false, err
	}

	for f := range touchedFiles.Iter() {
		file := f.(string)
		if t.InputPaths.Contains(file) {
			return true, nil
		}
		if gs.Matches(file) {
			return true, nil
		}
	}

	return false, nil
}

// GetAffectedFiles returns the subset of touchedFiles that actually matched
// one of this task's input paths or globs, sorted. Nothing in the module
// calls it.
func (t *Task) GetAffectedFiles(touchedFiles mapset.Set) ([]string, error) {
	gs, err := t.CreateGlobSet()
	if err != nil {
		return nil, err
	}

	var affected []string
	for f := range touchedFiles.Iter() {
		file := f.(string)
		if t.InputPaths.Contains(file) || gs.Matches(file) {
			affected = append(affected, file)
		}
	}
	sort.Strings(affected)
	return affected, nil
}

// Merge combines another Task's config-derived fields into t according to
// each field's configured MergeStrategy, the Go analogue of task.rs's merge
// (invoked by the Inherited Tasks Manager when a project-local task config
// overrides a workspace-inherited one of the same id).
func (t *Task) Merge(other Config) {
	if !other.Command.IsEmpty() {
		parts := other.Command.split()
		if len(parts) > 0 {
			t.Command = parts[0]
			t.Args = mergeVec(t.Args, parts[1:], t.Options.MergeArgs)
		}
	}

	if !other.Args.IsEmpty() {
		t.Args = mergeVec(t.Args, other.Args.split(), t.Options.MergeArgs)
	}

	if len(other.Deps) > 0 {
		merged := mergeTargets(t.Deps, other.Deps, t.Options.MergeDeps)
		t.Deps = merged
	}

	if len(other.Env) > 0 {
		t.Env = mergeEnvVars(t.Env, other.Env, t.Options.MergeEnv)
	}

	if other.Inputs != nil {
		t.Inputs = mergeVec(t.Inputs, *other.Inputs, t.Options.MergeInputs)
	}

	if other.Outputs != nil {
		t.Outputs = mergeVec(t.Outputs, *other.Outputs, t.Options.MergeOutputs)
	}

	if other.Platform != util.PlatformUnknown {
		t.Platform = other.Platform
	}

	if other.Type != nil {
		t.TypeOf = *other.Type
	}
}

// mergeVec combines base and override according to strategy: Replace drops
// base entirely, Prepend puts override first, Append (the default) puts
// override last.
func mergeVec(base, override []string, strategy MergeStrategy) []string {
	switch strategy {
	case MergeReplace:
		return append([]string(nil), override...)
	case MergePrepend:
		out := append([]string(nil), override...)
		return append(out, base...)
	default:
		out := append([]string(nil), base...)
		return append(out, override...)
	}
}

// mergeTargets is mergeVec's analogue for dependency target lists.
func mergeTargets(base, override []target.Target, strategy MergeStrategy) []target.Target {
	switch strategy {
	case MergeReplace:
		return append([]target.Target(nil), override...)
	case MergePrepend:
		out := append([]target.Target(nil), override...)
		return append(out, base...)
	default:
		out := append([]target.Target(nil), base...)
		return append(out, override...)
	}
}

// mergeEnvVars combines two env maps per strategy. Replace discards base;
// Prepend and Append both produce a union where override wins on key
// collision — the two strategies only differ for non-map task fields, but
// task.rs treats env merges this way since map keys have no order.
func mergeEnvVars(base, override map[string]string, strategy MergeStrategy) map[string]string {
	if strategy == MergeReplace {
		out := map[string]string{}
		for k, v := range override {
			out[k] = v
		}
		return out
	}

	out := map[string]string{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
