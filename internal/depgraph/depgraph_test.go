package depgraph

import (
	"testing"

	"github.com/ontools/moonrun/internal/action"
	"github.com/ontools/moonrun/internal/project"
	"github.com/ontools/moonrun/internal/target"
	"github.com/ontools/moonrun/internal/task"
	"github.com/ontools/moonrun/internal/util"
)

func mustTask(t *testing.T, raw string, deps []string, persistent bool) *task.Task {
	t.Helper()
	tgt, err := target.Parse(raw)
	if err != nil {
		t.Fatalf("target.Parse: %v", err)
	}
	var depTargets []target.Target
	for _, d := range deps {
		dt, err := target.Parse(d)
		if err != nil {
			t.Fatalf("target.Parse(%q): %v", d, err)
		}
		depTargets = append(depTargets, dt)
	}
	opts := task.DefaultOptions()
	opts.Persistent = persistent
	tsk, err := task.FromConfig(tgt, task.Config{
		Command: task.CommandArgs{String: "noop"},
		Options: opts,
	})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	tsk.Deps = depTargets
	tsk.Platform = util.PlatformNode
	return tsk
}

func twoProjectGraph(t *testing.T) map[string]*project.Project {
	app := project.New("app", "apps/app", "/ws", project.Config{})
	lib := project.New("lib", "packages/lib", "/ws", project.Config{})

	app.Tasks["build"] = mustTask(t, "app:build", []string{"lib:build"}, false)
	lib.Tasks["build"] = mustTask(t, "lib:build", nil, false)

	return map[string]*project.Project{"app": app, "lib": lib}
}

func TestDeriveOrdersSetupBeforeRunTarget(t *testing.T) {
	projects := twoProjectGraph(t)
	appBuild, _ := target.Parse("app:build")

	g, err := Derive(projects, []target.Target{appBuild}, Options{})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	batches, err := g.SortBatchedTopological()
	if err != nil {
		t.Fatalf("SortBatchedTopological: %v", err)
	}

	indexOf := func(kind action.NodeKind, label string) int {
		for bi, batch := range batches {
			for _, n := range batch {
				if n.Kind == kind && n.Label() == label {
					return bi
				}
			}
		}
		return -1
	}

	setupIdx := indexOf(action.NodeSetupTool, "SetupTool(node)")
	libBuildIdx := indexOf(action.NodeRunTarget, "RunTarget(lib:build)")
	appBuildIdx := indexOf(action.NodeRunTarget, "RunTarget(app:build)")

	if setupIdx == -1 || libBuildIdx == -1 || appBuildIdx == -1 {
		t.Fatalf("expected all three nodes present, got batches=%v", batches)
	}
	if !(setupIdx < libBuildIdx && libBuildIdx <= appBuildIdx) {
		t.Fatalf("expected setup before lib:build before/at app:build, got %d %d %d", setupIdx, libBuildIdx, appBuildIdx)
	}
	if libBuildIdx >= appBuildIdx {
		t.Fatalf("expected lib:build to schedule strictly before app:build (dependency order)")
	}
}

func TestDerivePersistentTargetNode(t *testing.T) {
	projects := twoProjectGraph(t)
	libBuild, _ := target.Parse("lib:build")
	projects["lib"].Tasks["build"].Options.Persistent = true

	g, err := Derive(projects, []target.Target{libBuild}, Options{})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	found := false
	for _, n := range g.Nodes() {
		if n.Kind == action.NodeRunPersistentTarget {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a RunPersistentTarget node")
	}
}

func TestSortBatchedTopologicalDetectsCycle(t *testing.T) {
	g := New()
	a := g.add(action.Node{Kind: action.NodeSyncProject, Project: "a"})
	b := g.add(action.Node{Kind: action.NodeSyncProject, Project: "b"})
	g.addDep(a, b)
	g.addDep(b, a)

	_, err := g.SortBatchedTopological()
	if err == nil {
		t.Fatalf("expected a cyclic dependency error")
	}
}
