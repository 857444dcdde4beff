package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadWorkspaceConfigSourcesMap(t *testing.T) {
	path := writeTemp(t, "workspace.yml", `
projects:
  app: apps/app
  lib: packages/lib
constraints:
  enforceProjectTypeRelationships: true
`)
	cfg, err := LoadWorkspaceConfig(path)
	if err != nil {
		t.Fatalf("LoadWorkspaceConfig: %v", err)
	}
	if cfg.Projects.Kind != ProjectsSources {
		t.Fatalf("Kind = %v, want sources", cfg.Projects.Kind)
	}
	if cfg.Projects.Sources["app"] != "apps/app" {
		t.Fatalf("Sources[app] = %q", cfg.Projects.Sources["app"])
	}
	if !cfg.Constraints.EnforceProjectTypeRelationships {
		t.Fatalf("expected EnforceProjectTypeRelationships = true")
	}
}

func TestLoadWorkspaceConfigGlobsList(t *testing.T) {
	path := writeTemp(t, "workspace.yml", `
projects:
  - apps/*
  - packages/*
`)
	cfg, err := LoadWorkspaceConfig(path)
	if err != nil {
		t.Fatalf("LoadWorkspaceConfig: %v", err)
	}
	if cfg.Projects.Kind != ProjectsGlobs {
		t.Fatalf("Kind = %v, want globs", cfg.Projects.Kind)
	}
	if len(cfg.Projects.Globs) != 2 {
		t.Fatalf("Globs = %v", cfg.Projects.Globs)
	}
}

func TestLoadWorkspaceConfigBoth(t *testing.T) {
	path := writeTemp(t, "workspace.yml", `
projects:
  sources:
    app: apps/app
  globs:
    - packages/*
`)
	cfg, err := LoadWorkspaceConfig(path)
	if err != nil {
		t.Fatalf("LoadWorkspaceConfig: %v", err)
	}
	if cfg.Projects.Kind != ProjectsBoth {
		t.Fatalf("Kind = %v, want both", cfg.Projects.Kind)
	}
	if len(cfg.Projects.Globs) != 1 || cfg.Projects.Sources["app"] != "apps/app" {
		t.Fatalf("unexpected decode: %+v", cfg.Projects)
	}
}

func TestLoadProjectConfigMissingFileIsNotError(t *testing.T) {
	cfg, err := LoadProjectConfig(filepath.Join(t.TempDir(), "nonexistent.yml"))
	if err != nil {
		t.Fatalf("expected no error for missing project config, got %v", err)
	}
	if cfg.Tasks == nil {
		t.Fatalf("expected non-nil Tasks map")
	}
}

func TestLoadProjectConfigDecodesTasks(t *testing.T) {
	path := writeTemp(t, "moon.yml", `
language: typescript
tags: ["frontend"]
dependsOn: ["lib"]
tasks:
  build:
    command: "webpack --mode production"
    outputs: ["dist"]
`)
	cfg, err := LoadProjectConfig(path)
	if err != nil {
		t.Fatalf("LoadProjectConfig: %v", err)
	}
	if len(cfg.Tags) != 1 || cfg.Tags[0] != "frontend" {
		t.Fatalf("Tags = %v", cfg.Tags)
	}
	if _, ok := cfg.Dependencies["lib"]; !ok {
		t.Fatalf("expected dependsOn entry for lib")
	}
	build, ok := cfg.Tasks["build"]
	if !ok {
		t.Fatalf("expected build task")
	}
	if build.Command.String != "webpack --mode production" {
		t.Fatalf("Command.String = %q", build.Command.String)
	}
	if build.Outputs == nil || len(*build.Outputs) != 1 || (*build.Outputs)[0] != "dist" {
		t.Fatalf("Outputs = %v", build.Outputs)
	}
}
