package inheritedtasks

import (
	"testing"

	"github.com/ontools/moonrun/internal/task"
	"github.com/ontools/moonrun/internal/util"
)

func TestGetLookupOrderForJSFamily(t *testing.T) {
	order := GetLookupOrder(util.PlatformNode, util.LanguageTypeScript, util.ProjectApplication, []string{"frontend"})
	want := []string{"*", "node", "typescript", "node-application", "typescript-application", "tag-frontend"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestGetLookupOrderForNonJSFamily(t *testing.T) {
	order := GetLookupOrder(util.PlatformRust, util.LanguageRust, util.ProjectLibrary, nil)
	want := []string{"*", "rust", "rust-library"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestGetInheritedConfigInjectsGlobalInputsAndPlatform(t *testing.T) {
	m := NewManager()
	m.AddConfig("tasks.yml", Config{
		Tasks: map[string]task.Config{
			"lint": {Command: task.CommandArgs{String: "eslint"}},
		},
	})
	m.AddConfig("node.yml", Config{
		Tasks: map[string]task.Config{
			"build": {Command: task.CommandArgs{String: "webpack"}},
		},
	})

	cfg, err := m.GetInheritedConfig(util.PlatformNode, util.LanguageJavaScript, util.ProjectApplication, nil)
	if err != nil {
		t.Fatalf("GetInheritedConfig: %v", err)
	}

	if _, ok := cfg.Tasks["lint"]; !ok {
		t.Fatalf("expected lint task from * entry")
	}

	build, ok := cfg.Tasks["build"]
	if !ok {
		t.Fatalf("expected build task from node entry")
	}
	if build.Platform != util.PlatformNode {
		t.Fatalf("build.Platform = %v, want node", build.Platform)
	}
	if len(build.GlobalInputs) != 1 || build.GlobalInputs[0] != "/.moon/tasks/node.yml" {
		t.Fatalf("build.GlobalInputs = %v", build.GlobalInputs)
	}
}

func TestGetInheritedConfigLaterTagWinsOnCollision(t *testing.T) {
	m := NewManager()
	m.AddConfig("tasks.yml", Config{
		Tasks: map[string]task.Config{
			"build": {Command: task.CommandArgs{String: "base-build"}},
		},
	})
	m.AddConfig("tag-special.yml", Config{
		Tasks: map[string]task.Config{
			"build": {Command: task.CommandArgs{String: "special-build"}},
		},
	})

	cfg, err := m.GetInheritedConfig(util.PlatformGo, util.LanguageGo, util.ProjectApplication, []string{"special"})
	if err != nil {
		t.Fatalf("GetInheritedConfig: %v", err)
	}

	build := cfg.Tasks["build"]
	if build.Command.String != "special-build" {
		t.Fatalf("Command.String = %q, want special-build (tag entry should win)", build.Command.String)
	}
}
