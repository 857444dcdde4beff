package run

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ontools/moonrun/internal/pipeline"
)

func TestParseArgsDefaults(t *testing.T) {
	opts, err := parseArgs([]string{"app:build"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if opts.Concurrency != pipeline.DefaultConcurrency {
		t.Errorf("Concurrency = %d, want default %d", opts.Concurrency, pipeline.DefaultConcurrency)
	}
	if !opts.BailOnFailure {
		t.Error("BailOnFailure should default to true")
	}
	if len(opts.Targets) != 1 || opts.Targets[0] != "app:build" {
		t.Errorf("Targets = %v", opts.Targets)
	}
}

func TestParseArgsContinueFlipsBail(t *testing.T) {
	opts, err := parseArgs([]string{"--continue", "app:build"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if opts.BailOnFailure {
		t.Error("--continue should set BailOnFailure = false")
	}
}

func TestParseArgsConcurrency(t *testing.T) {
	opts, err := parseArgs([]string{"--concurrency", "8", "app:build"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if opts.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", opts.Concurrency)
	}
}

func TestParseArgsRejectsBadConcurrency(t *testing.T) {
	cases := []string{"0", "-1", "nope", ""}
	for _, v := range cases {
		if _, err := parseArgs([]string{"--concurrency", v, "app:build"}); err == nil {
			t.Errorf("expected --concurrency %q to be rejected", v)
		}
	}
}

func TestParseArgsRequiresAtLeastOneTarget(t *testing.T) {
	if _, err := parseArgs(nil); err == nil {
		t.Error("expected an error with no targets")
	}
	if _, err := parseArgs([]string{"--force"}); err == nil {
		t.Error("expected an error with only flags and no targets")
	}
}

func TestParseArgsRejectsUnknownFlag(t *testing.T) {
	if _, err := parseArgs([]string{"--nonsense", "app:build"}); err == nil {
		t.Error("expected an unknown flag to be rejected")
	}
}

func TestParseArgsMissingFlagValue(t *testing.T) {
	for _, flag := range []string{"--concurrency", "--report", "--profile"} {
		if _, err := parseArgs([]string{flag}); err == nil {
			t.Errorf("expected %s with no value to be rejected", flag)
		}
	}
}

func TestParseTargetsRejectsNonProjectScopes(t *testing.T) {
	cases := []string{":build", "^:build", "#frontend:build"}
	for _, raw := range cases {
		if _, _, err := parseTargets([]string{raw}); err == nil {
			t.Errorf("expected %q to be rejected as a CLI target", raw)
		}
	}
}

func TestParseTargetsDedupesProjectIds(t *testing.T) {
	ids, targets, err := parseTargets([]string{"app:build", "app:test", "lib:build"})
	if err != nil {
		t.Fatalf("parseTargets: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 distinct project ids, got %v", ids)
	}
	if len(targets) != 3 {
		t.Fatalf("expected 3 targets, got %d", len(targets))
	}
}

func TestResolveWorkspaceRootExplicit(t *testing.T) {
	dir := t.TempDir()
	root, err := ResolveWorkspaceRoot(dir)
	if err != nil {
		t.Fatalf("ResolveWorkspaceRoot: %v", err)
	}
	if root != dir {
		t.Errorf("root = %q, want %q", root, dir)
	}
}

func TestResolveWorkspaceRootWalksUp(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".moon"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".moon", "workspace.yml"), []byte("projects: {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "apps", "web")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(nested); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveWorkspaceRoot("")
	if err != nil {
		t.Fatalf("ResolveWorkspaceRoot: %v", err)
	}
	gotReal, _ := filepath.EvalSymlinks(got)
	wantReal, _ := filepath.EvalSymlinks(root)
	if gotReal != wantReal {
		t.Errorf("root = %q, want %q", got, root)
	}
}

func TestResolveWorkspaceRootNotFound(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := ResolveWorkspaceRoot(""); err == nil {
		t.Error("expected an error when no .moon/workspace.yml exists in any ancestor")
	}
}
