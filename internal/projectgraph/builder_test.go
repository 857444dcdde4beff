package projectgraph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/ontools/moonrun/internal/cache"
	"github.com/ontools/moonrun/internal/config"
	"github.com/ontools/moonrun/internal/inheritedtasks"
	"github.com/ontools/moonrun/internal/platform"
	"github.com/ontools/moonrun/internal/vcs"
)

func writeProjectConfig(t *testing.T, dir, id, body string) {
	t.Helper()
	root := filepath.Join(dir, id)
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "project.yml"), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestBuilder(t *testing.T, root string, sources map[string]string) *Builder {
	t.Helper()
	wsCfg := &config.WorkspaceConfig{
		Projects: config.WorkspaceProjects{Kind: config.ProjectsSources, Sources: sources},
	}
	return NewBuilder(root, wsCfg, vcs.New(root), cache.NewNoopCache(), inheritedtasks.NewManager(), platform.NewRegistry(), hclog.NewNullLogger())
}

func TestLoadExpandsDependenciesAndOutputs(t *testing.T) {
	dir := t.TempDir()
	writeProjectConfig(t, dir, "lib", `
tasks:
  build:
    command: "echo lib-build"
    outputs: ["dist"]
`)
	writeProjectConfig(t, dir, "app", `
dependsOn: ["lib"]
tasks:
  build:
    command: "echo app-build"
    deps: ["^:build"]
    outputs: ["dist"]
`)

	b := newTestBuilder(t, dir, map[string]string{"app": "app", "lib": "lib"})
	if err := b.Preload(); err != nil {
		t.Fatalf("Preload: %v", err)
	}

	if _, err := b.LoadAll([]string{"app", "lib"}); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	graph, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	app := graph.Get("app")
	if app == nil {
		t.Fatal("expected app project to be loaded")
	}
	buildTask, ok := app.Tasks["build"]
	if !ok {
		t.Fatal("expected app to own a build task")
	}

	if len(buildTask.Deps) != 1 || buildTask.Deps[0].String() != "lib:build" {
		t.Fatalf("expected app:build to depend on lib:build, got %v", buildTask.Deps)
	}

	if !buildTask.OutputPaths.Contains("app/dist") {
		t.Fatalf("expected app/dist in OutputPaths, got %v", buildTask.OutputPaths)
	}
	if buildTask.InputPaths.Contains("app/dist") || buildTask.InputGlobs.Contains("app/dist") {
		t.Fatal("expected output path removed from input sets")
	}

	deps := graph.Dependencies("app")
	if len(deps) != 1 || deps[0].Id != "lib" {
		t.Fatalf("expected app's dependencies to be [lib], got %v", deps)
	}
}

func TestLoadSkipsCyclicDependencyEdge(t *testing.T) {
	dir := t.TempDir()
	writeProjectConfig(t, dir, "a", `
dependsOn: ["b"]
tasks:
  build:
    command: "echo a"
`)
	writeProjectConfig(t, dir, "b", `
dependsOn: ["a"]
tasks:
  build:
    command: "echo b"
`)

	b := newTestBuilder(t, dir, map[string]string{"a": "a", "b": "b"})
	if err := b.Preload(); err != nil {
		t.Fatalf("Preload: %v", err)
	}

	if _, err := b.Load("a"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	graph, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if graph.Get("a") == nil || graph.Get("b") == nil {
		t.Fatal("expected both projects to still be loaded despite the cycle")
	}
}

func TestLoadUnconfiguredIdFails(t *testing.T) {
	dir := t.TempDir()
	b := newTestBuilder(t, dir, map[string]string{})
	if err := b.Preload(); err != nil {
		t.Fatalf("Preload: %v", err)
	}
	if _, err := b.Load("missing"); err == nil {
		t.Fatal("expected an UnconfiguredIdError")
	}
}

func TestEnforceConstraintsRejectsPersistentDependency(t *testing.T) {
	dir := t.TempDir()
	writeProjectConfig(t, dir, "server", `
tasks:
  dev:
    command: "echo dev"
    options:
      persistent: true
`)
	writeProjectConfig(t, dir, "client", `
dependsOn: ["server"]
tasks:
  build:
    command: "echo build"
    deps: ["server:dev"]
`)

	b := newTestBuilder(t, dir, map[string]string{"client": "client", "server": "server"})
	if err := b.Preload(); err != nil {
		t.Fatalf("Preload: %v", err)
	}
	if _, err := b.LoadAll([]string{"client", "server"}); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	if _, err := b.Build(); err == nil {
		t.Fatal("expected a PersistentDepRequirementError")
	}
}
