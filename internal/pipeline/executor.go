package pipeline

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/ontools/moonrun/internal/project"
	"github.com/ontools/moonrun/internal/task"
	"github.com/ontools/moonrun/internal/util"
)

// Executor performs the real-world side of each action node kind. The
// pipeline's batch loop is the only caller; splitting it out as an
// interface lets tests substitute a recording fake instead of shelling
// out to actual tools.
type Executor interface {
	SetupTool(ctx context.Context, platform util.PlatformType) error
	InstallDeps(ctx context.Context, platform util.PlatformType, dir string) error
	SyncProject(ctx context.Context, proj *project.Project) error
	RunTarget(ctx context.Context, workspaceRoot string, proj *project.Project, t *task.Task) error
}

// installCommand maps a platform to the dependency-installation command
// run once per platform (or per project, for workspace-isolated installs)
// before any of its tasks execute.
var installCommand = map[util.PlatformType][]string{
	util.PlatformNode: {"npm", "install"},
	util.PlatformGo:   {"go", "mod", "download"},
}

// ProcessExecutor is the default Executor: SetupTool/SyncProject are
// no-ops (there is no toolchain-provisioning or config-sync step to shell
// out to in this orchestrator), InstallDeps shells out to the platform's
// package manager, and RunTarget shells out to the task's own command.
type ProcessExecutor struct{}

// NewProcessExecutor returns the default os/exec-backed Executor.
func NewProcessExecutor() *ProcessExecutor {
	return &ProcessExecutor{}
}

func (e *ProcessExecutor) SetupTool(ctx context.Context, platform util.PlatformType) error {
	return nil
}

func (e *ProcessExecutor) InstallDeps(ctx context.Context, platform util.PlatformType, dir string) error {
	cmd, ok := installCommand[platform]
	if !ok || len(cmd) == 0 {
		return nil
	}
	return e.run(ctx, dir, cmd[0], cmd[1:], nil)
}

func (e *ProcessExecutor) SyncProject(ctx context.Context, proj *project.Project) error {
	return nil
}

func (e *ProcessExecutor) RunTarget(ctx context.Context, workspaceRoot string, proj *project.Project, t *task.Task) error {
	if t.IsNoOp() {
		return nil
	}

	dir := proj.Root
	if t.Options.RunFromWorkspaceRoot {
		dir = workspaceRoot
	}

	env := os.Environ()
	for k, v := range t.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	return e.run(ctx, dir, t.Command, t.Args, env)
}

func (e *ProcessExecutor) run(ctx context.Context, dir, name string, args []string, env []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = env
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
