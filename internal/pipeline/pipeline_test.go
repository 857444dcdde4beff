package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/ontools/moonrun/internal/action"
	"github.com/ontools/moonrun/internal/cache"
	"github.com/ontools/moonrun/internal/depgraph"
	"github.com/ontools/moonrun/internal/emitter"
	"github.com/ontools/moonrun/internal/project"
	"github.com/ontools/moonrun/internal/supervisor"
	"github.com/ontools/moonrun/internal/target"
	"github.com/ontools/moonrun/internal/task"
	"github.com/ontools/moonrun/internal/util"
	"github.com/ontools/moonrun/internal/vcs"
)

// fakeExecutor records every RunTarget invocation and fails any target
// whose string form is present in failTargets, without ever shelling out
// to a real process.
type fakeExecutor struct {
	mu          sync.Mutex
	ran         []string
	failTargets map[string]bool
}

func newFakeExecutor(failTargets ...string) *fakeExecutor {
	fail := map[string]bool{}
	for _, t := range failTargets {
		fail[t] = true
	}
	return &fakeExecutor{failTargets: fail}
}

func (f *fakeExecutor) SetupTool(ctx context.Context, platform util.PlatformType) error { return nil }
func (f *fakeExecutor) InstallDeps(ctx context.Context, platform util.PlatformType, dir string) error {
	return nil
}
func (f *fakeExecutor) SyncProject(ctx context.Context, proj *project.Project) error { return nil }

func (f *fakeExecutor) RunTarget(ctx context.Context, workspaceRoot string, proj *project.Project, t *task.Task) error {
	f.mu.Lock()
	f.ran = append(f.ran, t.Target.String())
	fail := f.failTargets[t.Target.String()]
	f.mu.Unlock()

	if fail {
		return &targetFailure{target: t.Target.String()}
	}
	return nil
}

type targetFailure struct{ target string }

func (e *targetFailure) Error() string { return "forced failure: " + e.target }

func buildTestGraph(t *testing.T, root string) (*depgraph.Graph, map[string]*project.Project) {
	t.Helper()

	libTarget, err := target.Parse("lib:build")
	if err != nil {
		t.Fatal(err)
	}
	appTarget, err := target.Parse("app:build")
	if err != nil {
		t.Fatal(err)
	}

	lib := project.New("lib", "lib", root, project.Config{})
	libTask, err := task.FromConfig(libTarget, task.Config{Command: task.CommandArgs{String: "echo lib"}})
	if err != nil {
		t.Fatal(err)
	}
	lib.Tasks["build"] = libTask

	app := project.New("app", "app", root, project.Config{})
	appTask, err := task.FromConfig(appTarget, task.Config{
		Command: task.CommandArgs{String: "echo app"},
		Deps:    []target.Target{libTarget},
	})
	if err != nil {
		t.Fatal(err)
	}
	app.Tasks["build"] = appTask

	projects := map[string]*project.Project{"lib": lib, "app": app}

	graph, err := depgraph.Derive(projects, []target.Target{appTarget}, depgraph.Options{})
	if err != nil {
		t.Fatal(err)
	}

	return graph, projects
}

func newTestPipeline(root string, graph *depgraph.Graph, projects map[string]*project.Project, exec Executor, opts Options) *Pipeline {
	logger := hclog.NewNullLogger()
	return New(root, graph, projects, cache.NewNoopCache(), vcs.New(root), emitter.New(logger), supervisor.New(root, logger), exec, logger, opts)
}

func TestRunPassesEveryActionWhenNothingFails(t *testing.T) {
	root := t.TempDir()
	graph, projects := buildTestGraph(t, root)
	exec := newFakeExecutor()

	p := newTestPipeline(root, graph, projects, exec, Options{})
	actions, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(actions) != len(graph.Nodes()) {
		t.Fatalf("expected %d actions, got %d", len(graph.Nodes()), len(actions))
	}
	for _, a := range actions {
		if a.Status != action.StatusPassed {
			t.Fatalf("action %s: expected Passed, got %s (%v)", a.Label, a.Status, a.Error)
		}
	}

	if len(exec.ran) != 2 {
		t.Fatalf("expected both targets to run, got %v", exec.ran)
	}
}

func TestRunSkipsDependentsOfAFailedAction(t *testing.T) {
	root := t.TempDir()
	graph, projects := buildTestGraph(t, root)
	exec := newFakeExecutor("lib:build")

	p := newTestPipeline(root, graph, projects, exec, Options{BailOnFailure: false})
	actions, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run should not abort without BailOnFailure: %v", err)
	}

	var libStatus, appStatus action.Status
	for _, a := range actions {
		switch a.Node.Kind {
		case action.NodeRunTarget:
			if a.Node.Target.String() == "lib:build" {
				libStatus = a.Status
			}
			if a.Node.Target.String() == "app:build" {
				appStatus = a.Status
			}
		}
	}

	if libStatus != action.StatusFailed {
		t.Fatalf("expected lib:build to be Failed, got %s", libStatus)
	}
	if appStatus != action.StatusSkipped {
		t.Fatalf("expected app:build to be Skipped, got %s", appStatus)
	}
}

func TestRunAbortsOnBailOnFailure(t *testing.T) {
	root := t.TempDir()
	graph, projects := buildTestGraph(t, root)
	exec := newFakeExecutor("lib:build")

	p := newTestPipeline(root, graph, projects, exec, Options{BailOnFailure: true})
	_, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected an AbortedError")
	}
}
