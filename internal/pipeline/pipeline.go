// Package pipeline implements the Action Pipeline (C8): batch-by-batch
// execution of a depgraph.Graph under bounded concurrency, with cache
// consultation and archiving around every RunTarget node, persistent-task
// supervision for RunPersistentTarget nodes, and emitter event dispatch
// at every lifecycle transition.
//
// Grounded on turbo's cli/internal/run/real_run.go scheduler (batches from
// the dependency graph run through an errgroup-style worker pool, with a
// concurrency limit and a bail-on-first-failure switch), generalized from
// a single "run tasks" loop into the five action-node-kind dispatch this
// orchestrator's depgraph produces, and using golang.org/x/sync/semaphore
// in place of turbo's channel-based limiter for the concurrency gate.
// Every action is wrapped in a github.com/google/chrometracing event the
// same way turbo's RunState.Run does, a no-op unless a caller has called
// chrometracing.EnableTracing (run.Execute's --profile flag).
package pipeline

import (
	"context"
	"sync"

	"github.com/google/chrometracing"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ontools/moonrun/internal/action"
	"github.com/ontools/moonrun/internal/cache"
	"github.com/ontools/moonrun/internal/depgraph"
	"github.com/ontools/moonrun/internal/emitter"
	"github.com/ontools/moonrun/internal/errs"
	"github.com/ontools/moonrun/internal/project"
	"github.com/ontools/moonrun/internal/supervisor"
	"github.com/ontools/moonrun/internal/task"
	"github.com/ontools/moonrun/internal/vcs"
)

// Options configures a single Run invocation.
type Options struct {
	// Concurrency bounds how many actions execute at once within a batch.
	// Zero means DefaultConcurrency.
	Concurrency int
	// BailOnFailure promotes any Failed action to FailedAndAbort, stopping
	// the whole run instead of merely skipping that action's dependents.
	BailOnFailure bool
	// Force skips the cache Fetch check for every RunTarget node, forcing
	// it to actually execute, while still archiving its outputs afterward.
	Force bool
	// Context carries the run's touched files, affected targets, primary
	// targets, profile selection, and passthrough args through to every
	// action task and into the PipelineStarted/PipelineFinished events. May
	// be nil, in which case those events simply carry a nil context.
	Context *action.Context
}

// DefaultConcurrency is used when Options.Concurrency is unset.
const DefaultConcurrency = 4

// Pipeline executes one depgraph.Graph to completion.
type Pipeline struct {
	workspaceRoot string
	graph         *depgraph.Graph
	projects      map[string]*project.Project
	cache         cache.Cache
	vcs           vcs.VCS
	emitter       *emitter.Emitter
	supervisor    *supervisor.Supervisor
	executor      Executor
	logger        hclog.Logger
	opts          Options
	sem           *semaphore.Weighted

	mu     sync.Mutex
	hashes map[int]string
}

// New returns a Pipeline ready to run graph over projects.
func New(
	workspaceRoot string,
	graph *depgraph.Graph,
	projects map[string]*project.Project,
	c cache.Cache,
	v vcs.VCS,
	em *emitter.Emitter,
	sup *supervisor.Supervisor,
	exec Executor,
	logger hclog.Logger,
	opts Options,
) *Pipeline {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Pipeline{
		workspaceRoot: workspaceRoot,
		graph:         graph,
		projects:      projects,
		cache:         c,
		vcs:           v,
		emitter:       em,
		supervisor:    sup,
		executor:      exec,
		logger:        logger.Named("pipeline"),
		opts:          opts,
		sem:           semaphore.NewWeighted(int64(concurrency)),
		hashes:        map[int]string{},
	}
}

// Run executes every batch of the graph's topological sort in order,
// running each batch's nodes concurrently up to Options.Concurrency, and
// returns every Action produced (including ones later marked Skipped by
// failure propagation). A non-nil error means the run aborted before
// every node was scheduled.
func (p *Pipeline) Run(ctx context.Context) ([]*action.Action, error) {
	p.emitter.Emit(emitter.PipelineStarted, map[string]interface{}{
		"actions_count": len(p.graph.Nodes()),
		"context":       p.opts.Context,
	})

	batches, err := p.graph.SortBatchedTopological()
	if err != nil {
		p.emitter.Emit(emitter.PipelineAborted, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	nodes := p.graph.Nodes()
	actions := make([]*action.Action, len(nodes))

	failed := map[int]bool{}
	skipped := map[int]bool{}
	var aborted bool
	var abortErr error

batches:
	for batchNum, batch := range batches {
		g, gctx := errgroup.WithContext(ctx)

		for i, node := range batch {
			node := node
			i := i

			idx, ok := p.graph.IndexOf(node.Label())
			if !ok {
				continue
			}

			blocked := false
			for _, depIdx := range p.graph.Dependencies(idx) {
				if failed[depIdx] || skipped[depIdx] {
					blocked = true
					break
				}
			}

			act := action.New(node, batchNum, i)
			actions[idx] = act

			if blocked {
				act.Finish(action.StatusSkipped, nil)
				skipped[idx] = true
				continue
			}

			g.Go(func() error {
				if err := p.sem.Acquire(gctx, 1); err != nil {
					return err
				}
				defer p.sem.Release(1)

				p.emitter.Emit(emitter.ActionStarted, map[string]interface{}{"label": act.Label})
				tracer := chrometracing.Event(act.Label)
				status, runErr := p.runNode(gctx, idx, node)
				tracer.Done()

				if status == action.StatusFailed && p.opts.BailOnFailure {
					status = action.StatusFailedAndAbort
				}
				act.Finish(status, runErr)

				p.emitter.Emit(emitter.ActionFinished, map[string]interface{}{
					"label":  act.Label,
					"status": string(act.Status),
				})

				if act.HasFailed() {
					p.mu.Lock()
					failed[idx] = true
					p.mu.Unlock()
					if act.ShouldAbort() {
						return &errs.ActionFailedError{Label: act.Label, Cause: runErr}
					}
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			aborted = true
			abortErr = err
			p.emitter.Emit(emitter.PipelineAborted, map[string]interface{}{"error": err.Error()})
			break batches
		}
	}

	out := make([]*action.Action, 0, len(actions))
	for _, a := range actions {
		if a != nil {
			out = append(out, a)
		}
	}

	if aborted {
		return out, &errs.AbortedError{Reason: abortErr.Error()}
	}

	p.emitter.Emit(emitter.PipelineFinished, map[string]interface{}{"context": p.opts.Context})
	return out, nil
}

// runNode dispatches a single action node to the executor (or the cache /
// supervisor, for RunTarget / RunPersistentTarget) and returns its raw
// terminal status — never FailedAndAbort, which Run alone decides.
func (p *Pipeline) runNode(ctx context.Context, idx int, node action.Node) (action.Status, error) {
	switch node.Kind {
	case action.NodeSetupTool:
		if err := p.executor.SetupTool(ctx, node.Platform); err != nil {
			return action.StatusFailed, err
		}
		return action.StatusPassed, nil

	case action.NodeInstallDeps:
		dir := p.workspaceRoot
		if node.Project != "" {
			if proj, ok := p.projects[node.Project]; ok {
				dir = proj.Root
			}
		}
		if err := p.executor.InstallDeps(ctx, node.Platform, dir); err != nil {
			return action.StatusFailed, err
		}
		return action.StatusPassed, nil

	case action.NodeSyncProject:
		proj, ok := p.projects[node.Project]
		if !ok {
			return action.StatusFailed, &errs.UnconfiguredIdError{Id: node.Project}
		}
		if err := p.executor.SyncProject(ctx, proj); err != nil {
			return action.StatusFailed, err
		}
		return action.StatusPassed, nil

	case action.NodeRunTarget:
		return p.runTarget(ctx, idx, node, false)

	case action.NodeRunPersistentTarget:
		return p.runTarget(ctx, idx, node, true)

	default:
		return action.StatusInvalid, &errs.UnknownActionNodeError{Index: idx}
	}
}

func (p *Pipeline) runTarget(ctx context.Context, idx int, node action.Node, persistent bool) (action.Status, error) {
	projID := node.Target.Scope.ProjectID.String()
	proj, ok := p.projects[projID]
	if !ok {
		return action.StatusFailed, &errs.UnconfiguredIdError{Id: projID}
	}

	t, ok := proj.Tasks[node.Target.TaskID.String()]
	if !ok {
		return action.StatusFailed, &errs.UnconfiguredIdError{Id: node.Target.String()}
	}

	if persistent {
		return p.runPersistentTarget(ctx, proj, t)
	}

	depHashes := p.dependencyHashes(idx)
	hash, err := TaskHash(p.workspaceRoot, p.vcs, t, depHashes)
	if err != nil {
		return action.StatusFailed, err
	}
	p.mu.Lock()
	p.hashes[idx] = hash
	p.mu.Unlock()

	if !p.opts.Force {
		hit, err := p.cache.Fetch(p.workspaceRoot, hash)
		if err != nil {
			return action.StatusFailed, err
		}
		if hit {
			p.emitter.Emit(emitter.TargetOutputHydrating, map[string]interface{}{"target": node.Target.String(), "hash": hash})
			p.emitter.Emit(emitter.TargetOutputHydrated, map[string]interface{}{"target": node.Target.String(), "hash": hash})
			return action.StatusCached, nil
		}
	}

	p.emitter.Emit(emitter.TargetRunning, map[string]interface{}{"target": node.Target.String()})
	if err := p.executor.RunTarget(ctx, p.workspaceRoot, proj, t); err != nil {
		return action.StatusFailed, err
	}
	p.emitter.Emit(emitter.TargetRan, map[string]interface{}{"target": node.Target.String()})

	outputs := resolveOutputFiles(p.workspaceRoot, t)
	if len(outputs) > 0 {
		p.emitter.Emit(emitter.TargetOutputArchiving, map[string]interface{}{"target": node.Target.String(), "hash": hash})
		if err := p.cache.Put(p.workspaceRoot, hash, outputs); err != nil {
			return action.StatusFailed, err
		}
		p.emitter.Emit(emitter.TargetOutputArchived, map[string]interface{}{"target": node.Target.String(), "hash": hash})
	}

	if err := p.cache.CreateHashManifest(hash, t.ToConfig()); err != nil {
		p.logger.Warn("failed writing hash manifest", "target", node.Target.String(), "error", err)
	}

	return action.StatusPassed, nil
}

// runPersistentTarget either reuses an already-running supervised process
// (Skipped, never re-launched mid-run) or starts a fresh one without
// blocking on its completion: a dev server is expected to outlive the
// pipeline invocation that launched it.
func (p *Pipeline) runPersistentTarget(ctx context.Context, proj *project.Project, t *task.Task) (action.Status, error) {
	if p.supervisor.IsRunning(t.Target) {
		return action.StatusSkipped, nil
	}

	dir := proj.Root
	if t.Options.RunFromWorkspaceRoot {
		dir = p.workspaceRoot
	}

	env := envSlice(t.Env)

	if _, err := p.supervisor.Start(ctx, t.Target, t.Command, t.Args, env, dir); err != nil {
		return action.StatusFailed, err
	}
	return action.StatusPassed, nil
}

// dependencyHashes collects the already-computed task hashes of idx's
// direct RunTarget dependencies, keyed by node label, for folding into
// its own TaskHash.
func (p *Pipeline) dependencyHashes(idx int) map[string]string {
	nodes := p.graph.Nodes()
	out := map[string]string{}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, depIdx := range p.graph.Dependencies(idx) {
		if h, ok := p.hashes[depIdx]; ok {
			out[nodes[depIdx].Label()] = h
		}
	}
	return out
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
