// Package run implements the `run` command: it wires the Project Graph
// Builder (C5), the Dependency Graph (C6) and the Action Pipeline (C8)
// into one invocation, then persists a run report (C9's estimate folded
// in) when the workspace has a cache to write one to.
//
// Grounded on turbo's cli/internal/run/run.go RunCommand, which owns the
// same "resolve config, build the graph, run the scheduler, print a
// summary" sequence for a single mitchellh/cli command; generalized from
// turbo's single npm/pnpm workspace model into this orchestrator's
// platform-registry-driven multi-language one.
package run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/chrometracing"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"

	"github.com/ontools/moonrun/internal/action"
	"github.com/ontools/moonrun/internal/cache"
	"github.com/ontools/moonrun/internal/config"
	"github.com/ontools/moonrun/internal/depgraph"
	"github.com/ontools/moonrun/internal/emitter"
	"github.com/ontools/moonrun/internal/estimator"
	"github.com/ontools/moonrun/internal/pipeline"
	"github.com/ontools/moonrun/internal/platform"
	"github.com/ontools/moonrun/internal/project"
	"github.com/ontools/moonrun/internal/projectgraph"
	"github.com/ontools/moonrun/internal/runreport"
	"github.com/ontools/moonrun/internal/supervisor"
	"github.com/ontools/moonrun/internal/target"
	"github.com/ontools/moonrun/internal/vcs"
)

// Options captures everything the `run` subcommand's flags decode into,
// separate from the cobra/cli plumbing so Execute is directly testable.
type Options struct {
	WorkspaceRoot string // empty means "discover from the current directory"
	Targets       []string
	Concurrency   int
	BailOnFailure bool
	Force         bool
	Dependents    bool
	Affected      bool
	ReportName    string
	WebhookURL    string // overrides the workspace notifier, if set
	ProfileFile   string // non-empty enables chrometracing, copied here on exit
}

// Command adapts Execute to the mitchellh/cli.Command interface, the way
// RunCommand wraps turbo's run logic for mitchellh/cli's RunCommandFactory
// registration, while cmd/root.go's cobra tree is what users actually
// invoke.
type Command struct {
	Ui     cli.Ui
	Logger hclog.Logger
}

func (c *Command) Synopsis() string { return "Run one or more project tasks" }

func (c *Command) Help() string {
	return strings.TrimSpace(`
Usage: moonrun run <project:task> [<project:task>...] [options]

  Runs the given targets and everything they transitively depend on,
  skipping any target whose cached output is still valid.

Options:
  --concurrency N      bound how many actions run at once (default 4)
  --continue           don't abort the run when a target fails
  --force              ignore the cache, always re-run every target
  --dependents         also run every target that depends on a requested one
  --affected           with --dependents, only include downstream targets
                       actually affected by uncommitted changes
  --report NAME         persist a run report to .moon/cache/runs/NAME.json
  --profile FILE        write a chrome://tracing-compatible trace to FILE
`)
}

func (c *Command) Run(args []string) int {
	opts, err := parseArgs(args)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}

	root, err := ResolveWorkspaceRoot(opts.WorkspaceRoot)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	opts.WorkspaceRoot = root

	if _, err := Execute(context.Background(), opts, c.Ui, c.Logger); err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	return 0
}

func parseArgs(args []string) (Options, error) {
	opts := Options{Concurrency: pipeline.DefaultConcurrency, BailOnFailure: true}
	var targets []string

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--continue":
			opts.BailOnFailure = false
		case a == "--force":
			opts.Force = true
		case a == "--dependents":
			opts.Dependents = true
		case a == "--affected":
			opts.Affected = true
		case a == "--concurrency":
			i++
			if i >= len(args) {
				return opts, fmt.Errorf("--concurrency requires a value")
			}
			n, err := strconv.Atoi(args[i])
			if err != nil || n <= 0 {
				return opts, fmt.Errorf("--concurrency must be a positive integer, got %q", args[i])
			}
			opts.Concurrency = n
		case a == "--report":
			i++
			if i >= len(args) {
				return opts, fmt.Errorf("--report requires a value")
			}
			opts.ReportName = args[i]
		case a == "--profile":
			i++
			if i >= len(args) {
				return opts, fmt.Errorf("--profile requires a value")
			}
			opts.ProfileFile = args[i]
		case strings.HasPrefix(a, "-"):
			return opts, fmt.Errorf("unknown flag %q", a)
		default:
			targets = append(targets, a)
		}
	}

	if len(targets) == 0 {
		return opts, fmt.Errorf("at least one target (project:task) is required")
	}
	opts.Targets = targets
	return opts, nil
}

// ResolveWorkspaceRoot expands a leading "~" in an explicit root (the same
// courtesy turbo's config loader gives --cache-dir paths), or, when root
// is empty, walks upward from the current directory looking for
// .moon/workspace.yml, mirroring vcs.Git.IsEnabled's walk-up-for-.git
// idiom.
func ResolveWorkspaceRoot(root string) (string, error) {
	if root != "" {
		expanded, err := homedir.Expand(root)
		if err != nil {
			return "", errors.Wrapf(err, "expanding workspace root %q", root)
		}
		return filepath.Abs(expanded)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		if info, err := os.Stat(filepath.Join(dir, ".moon", "workspace.yml")); err == nil && !info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no .moon/workspace.yml found in %q or any parent directory", cwd)
		}
		dir = parent
	}
}

// Execute runs the full Preload -> LoadAll -> Build -> Derive -> Pipeline.Run
// sequence for opts against a freshly constructed set of workspace
// collaborators, printing progress through ui and returning the finished
// actions for a caller that wants to inspect them directly (tests do).
func Execute(ctx context.Context, opts Options, ui cli.Ui, logger hclog.Logger) ([]*action.Action, error) {
	if opts.ProfileFile != "" {
		chrometracing.EnableTracing()
		defer writeChrometracing(opts.ProfileFile, ui)
	}

	wsConfigPath, err := findWorkspaceConfigFile(opts.WorkspaceRoot)
	if err != nil {
		return nil, err
	}
	wsConfig, err := config.LoadWorkspaceConfig(wsConfigPath)
	if err != nil {
		return nil, err
	}

	v := vcs.New(opts.WorkspaceRoot)

	var c cache.Cache = cache.NewNoopCache()
	if !opts.Force {
		c = cache.NewFSCache(opts.WorkspaceRoot)
	}

	inherited, err := config.LoadInheritedTasksManager(opts.WorkspaceRoot)
	if err != nil {
		return nil, err
	}

	platforms := platform.NewRegistry()

	builder := projectgraph.NewBuilder(opts.WorkspaceRoot, wsConfig, v, c, inherited, platforms, logger)
	builder.SetCollisionResolver(projectgraph.InteractiveCollisionResolver{})
	if err := builder.Preload(); err != nil {
		return nil, errors.Wrap(err, "preloading project graph")
	}

	primaryIDs, primaryTargets, err := parseTargets(opts.Targets)
	if err != nil {
		return nil, err
	}

	if _, err := builder.LoadAll(primaryIDs); err != nil {
		return nil, errors.Wrap(err, "loading projects")
	}

	pg, err := builder.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building project graph")
	}
	projects := toProjectMap(pg)

	actionCtx := action.NewContext(opts.Targets)
	if opts.Affected {
		touched, err := v.GetTouchedFiles()
		if err != nil {
			return nil, errors.Wrap(err, "collecting touched files")
		}
		actionCtx.AddTouchedFiles(touched)
	}

	depGraph, err := depgraph.Derive(projects, primaryTargets, depgraph.Options{
		Dependents:   opts.Dependents,
		AffectedOnly: opts.Affected,
		Context:      actionCtx,
	})
	if err != nil {
		return nil, errors.Wrap(err, "deriving dependency graph")
	}

	em := emitter.New(logger)
	webhookURL := opts.WebhookURL
	if webhookURL == "" {
		webhookURL = wsConfig.Notifier.WebhookURL
	}
	stdoutFd := os.Stdout.Fd()
	emitter.BuildDefault(em, webhookURL, nil, nil, stdoutFd, logger)

	sup := supervisor.New(opts.WorkspaceRoot, logger)
	exec := pipeline.NewProcessExecutor()

	p := pipeline.New(opts.WorkspaceRoot, depGraph, projects, c, v, em, sup, exec, logger, pipeline.Options{
		Concurrency:   opts.Concurrency,
		BailOnFailure: opts.BailOnFailure,
		Force:         opts.Force,
		Context:       actionCtx,
	})

	printTargets(ui, opts.Targets)
	start := time.Now()
	actions, runErr := p.Run(ctx)
	duration := time.Since(start)

	printSummary(ui, actions, duration)

	if opts.ReportName != "" && runErr == nil {
		results := make([]estimator.Result, 0, len(actions))
		for _, a := range actions {
			results = append(results, estimator.Result{Duration: a.Duration, Cached: a.IsCacheHit()})
		}
		est := estimator.Compute(results, duration)
		report := runreport.Build(actions, est, map[string]interface{}{
			"targets": opts.Targets,
		})
		if err := c.CreateJSONReport(opts.ReportName, report); err != nil {
			ui.Warn(fmt.Sprintf("failed writing run report %q: %v", opts.ReportName, err))
		}
	}

	return actions, runErr
}

// toProjectMap flattens a built ProjectGraph into the id-keyed map the
// dependency graph and pipeline packages operate over.
func toProjectMap(pg *projectgraph.ProjectGraph) map[string]*project.Project {
	all := pg.All()
	out := make(map[string]*project.Project, len(all))
	for _, p := range all {
		out[p.Id] = p
	}
	return out
}

// writeChrometracing closes the active trace and copies it to filename,
// mirroring turbo's own writeChrometracing helper.
func writeChrometracing(filename string, ui cli.Ui) {
	outputPath := chrometracing.Path()
	if outputPath == "" {
		return
	}
	if err := chrometracing.Close(); err != nil {
		ui.Warn(fmt.Sprintf("failed to flush tracing data: %v", err))
		return
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		ui.Warn(fmt.Sprintf("failed to read trace output %q: %v", outputPath, err))
		return
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		ui.Warn(fmt.Sprintf("failed to write trace to %q: %v", filename, err))
	}
}

func findWorkspaceConfigFile(workspaceRoot string) (string, error) {
	path := filepath.Join(workspaceRoot, ".moon", "workspace.yml")
	if _, err := os.Stat(path); err != nil {
		return "", errors.Wrapf(err, "no workspace config at %q", path)
	}
	return path, nil
}

func parseTargets(raw []string) ([]string, []target.Target, error) {
	ids := make([]string, 0, len(raw))
	targets := make([]target.Target, 0, len(raw))
	seen := map[string]bool{}

	for _, s := range raw {
		t, err := target.Parse(s)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "parsing target %q", s)
		}
		if t.Scope.Kind != target.Project {
			return nil, nil, fmt.Errorf("target %q: only project:task targets are accepted on the command line", s)
		}
		targets = append(targets, t)
		projID := t.Scope.ProjectID.String()
		if !seen[projID] {
			seen[projID] = true
			ids = append(ids, projID)
		}
	}
	return ids, targets, nil
}

func printTargets(ui cli.Ui, targets []string) {
	ui.Info(color.CyanString("• running %s", strings.Join(targets, ", ")))
}

func printSummary(ui cli.Ui, actions []*action.Action, duration time.Duration) {
	passed, cached, failed, skipped := 0, 0, 0, 0
	for _, a := range actions {
		switch {
		case a.IsCacheHit():
			cached++
		case a.HasFailed():
			failed++
		case a.Status == action.StatusSkipped:
			skipped++
		case a.Status == action.StatusPassed:
			passed++
		}
	}

	line := fmt.Sprintf("%d passed, %d cached, %d failed, %d skipped in %s",
		passed, cached, failed, skipped, duration.Round(time.Millisecond))
	if failed > 0 {
		ui.Error(color.RedString(line))
		return
	}
	ui.Info(color.GreenString(line))
}
