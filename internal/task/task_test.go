package task

import (
	"testing"

	mapset "github.com/deckarep/golang-set"

	"github.com/ontools/moonrun/internal/target"
)

func mustTarget(t *testing.T, raw string) target.Target {
	t.Helper()
	tgt, err := target.Parse(raw)
	if err != nil {
		t.Fatalf("target.Parse(%q): %v", raw, err)
	}
	return tgt
}

func TestFromConfigDefaultsCommandToNoop(t *testing.T) {
	tgt := mustTarget(t, "app:lint")
	tsk, err := FromConfig(tgt, Config{Options: DefaultOptions()})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if tsk.Command != "noop" {
		t.Fatalf("Command = %q, want noop", tsk.Command)
	}
	if !tsk.IsNoOp() {
		t.Fatalf("IsNoOp() = false for default task")
	}
}

func TestFromConfigSplitsStringCommand(t *testing.T) {
	tgt := mustTarget(t, "app:build")
	tsk, err := FromConfig(tgt, Config{
		Command: CommandArgs{String: "webpack --mode production"},
		Options: DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if tsk.Command != "webpack" {
		t.Fatalf("Command = %q, want webpack", tsk.Command)
	}
	want := []string{"--mode", "production"}
	if len(tsk.Args) != len(want) || tsk.Args[0] != want[0] || tsk.Args[1] != want[1] {
		t.Fatalf("Args = %v, want %v", tsk.Args, want)
	}
}

func TestFromConfigSetsNoInputsFlagOnEmptySlice(t *testing.T) {
	tgt := mustTarget(t, "app:build")
	empty := []string{}
	tsk, err := FromConfig(tgt, Config{
		Command: CommandArgs{String: "noop"},
		Inputs:  &empty,
		Options: DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if !tsk.Flags.Contains(FlagNoInputs) {
		t.Fatalf("expected FlagNoInputs to be set")
	}
	affected, err := tsk.IsAffected(mapset.NewSet())
	if err != nil {
		t.Fatalf("IsAffected: %v", err)
	}
	if !affected {
		t.Fatalf("task with FlagNoInputs must always be affected")
	}
}

func TestFromConfigRejectsTagDependency(t *testing.T) {
	tgt := mustTarget(t, "app:build")
	dep := mustTarget(t, "#frontend:build")
	_, err := FromConfig(tgt, Config{
		Command: CommandArgs{String: "noop"},
		Deps:    []target.Target{dep},
		Options: DefaultOptions(),
	})
	if err == nil {
		t.Fatalf("expected error for tag-scoped task dependency")
	}
}

func TestDetermineTypePromotesToBuildWhenOutputsPresent(t *testing.T) {
	tgt := mustTarget(t, "app:test")
	tsk, err := FromConfig(tgt, Config{
		Command: CommandArgs{String: "jest"},
		Options: DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	tsk.Outputs = []string{"coverage"}
	tsk.DetermineType()
	if !tsk.IsBuildType() {
		t.Fatalf("expected task to be promoted to build type")
	}
}

func TestShouldRunInCI(t *testing.T) {
	tgt := mustTarget(t, "app:dev")
	tsk, err := FromConfig(tgt, Config{
		Command: CommandArgs{String: "dev"},
		Options: DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if tsk.ShouldRunInCI() {
		t.Fatalf("run-type task should not run in CI by default")
	}

	tsk.TypeOf = TypeTest
	if !tsk.ShouldRunInCI() {
		t.Fatalf("test-type task with RunInCI=true should run in CI")
	}

	tsk.Options.RunInCI = false
	if tsk.ShouldRunInCI() {
		t.Fatalf("RunInCI=false must always suppress CI execution")
	}
}

func TestMergeAppendsArgsByDefault(t *testing.T) {
	tgt := mustTarget(t, "app:build")
	tsk, err := FromConfig(tgt, Config{
		Command: CommandArgs{String: "webpack --mode production"},
		Options: DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}

	tsk.Merge(Config{Args: CommandArgs{Sequence: []string{"--watch"}}})

	want := []string{"--mode", "production", "--watch"}
	if len(tsk.Args) != len(want) {
		t.Fatalf("Args = %v, want %v", tsk.Args, want)
	}
	for i := range want {
		if tsk.Args[i] != want[i] {
			t.Fatalf("Args[%d] = %q, want %q", i, tsk.Args[i], want[i])
		}
	}
}

func TestMergeReplaceDropsBaseEnv(t *testing.T) {
	tgt := mustTarget(t, "app:build")
	tsk, err := FromConfig(tgt, Config{
		Command: CommandArgs{String: "noop"},
		Env:     map[string]string{"NODE_ENV": "development"},
		Options: DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	tsk.Options.MergeEnv = MergeReplace

	tsk.Merge(Config{Env: map[string]string{"NODE_ENV": "production"}})

	if len(tsk.Env) != 1 || tsk.Env["NODE_ENV"] != "production" {
		t.Fatalf("Env = %v, want only NODE_ENV=production", tsk.Env)
	}
}

func TestToConfigRoundTripsCommand(t *testing.T) {
	tgt := mustTarget(t, "app:build")
	cfg := Config{
		Command: CommandArgs{Sequence: []string{"tsc", "--build"}},
		Options: DefaultOptions(),
	}
	tsk, err := FromConfig(tgt, cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}

	out := tsk.ToConfig()
	if len(out.Command.Sequence) != 2 || out.Command.Sequence[0] != "tsc" || out.Command.Sequence[1] != "--build" {
		t.Fatalf("ToConfig().Command.Sequence = %v, want [tsc --build]", out.Command.Sequence)
	}
}
