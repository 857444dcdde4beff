// Package depgraph implements the Dependency Graph (C6): a directed graph
// of action nodes (SetupTool, InstallDeps, SyncProject, RunTarget /
// RunPersistentTarget) derived from the project graph plus a set of
// requested targets, with a batched topological sort consumed by the
// pipeline (C8).
//
// Grounded on turbo's use of github.com/pyr-sh/dag in
// cli/internal/run/run.go (an AcyclicGraph of package nodes, later walked
// in topological batches by the scheduler) — generalized from a single
// package-task graph into the five-kind action graph this orchestrator
// needs. Batch computation itself is hand-rolled Kahn's algorithm rather
// than a dag.AcyclicGraph traversal helper, since the batching rule (every
// node whose dependencies are already satisfied goes into the same batch,
// as a group) is a property this component owns, not one the generic
// graph library expresses directly.
package depgraph

import (
	"fmt"
	"sort"

	"github.com/pyr-sh/dag"

	"github.com/ontools/moonrun/internal/action"
	"github.com/ontools/moonrun/internal/errs"
	"github.com/ontools/moonrun/internal/project"
	"github.com/ontools/moonrun/internal/target"
	"github.com/ontools/moonrun/internal/util"
)

// Options configures derivation from a set of primary targets.
type Options struct {
	// Dependents additionally schedules every target that depends on a
	// primary target (a "run everything downstream" request).
	Dependents bool
	// Persistent marks every derived RunTarget node as
	// RunPersistentTarget instead.
	Persistent bool
	// AffectedOnly restricts the Dependents walk to downstream targets
	// whose own task is affected by Context's touched files, instead of
	// every target that merely depends on a primary one. Has no effect
	// without Dependents, and requires Context to be set.
	AffectedOnly bool
	// Context, when set, is consulted for AffectedOnly and receives a
	// MarkAffected call for every visited target this derivation finds
	// affected, so the pipeline and its subscribers can later tell which
	// of the run's targets did real work versus rode along as a
	// dependency.
	Context *action.Context
}

// Graph wraps an action-node AcyclicGraph plus the adjacency this
// package's own batching algorithm operates over.
type Graph struct {
	dag   dag.AcyclicGraph
	nodes []action.Node
	// deps[i] holds the indices of the nodes that node i depends on
	// (each must be scheduled in a strictly earlier batch).
	deps [][]int
	key  map[string]int // node label -> index, for de-duplication
}

// New constructs an empty Graph.
func New() *Graph {
	return &Graph{key: map[string]int{}}
}

func (g *Graph) add(n action.Node) int {
	label := n.Label()
	if idx, ok := g.key[label]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.deps = append(g.deps, nil)
	g.key[label] = idx
	g.dag.Add(idx)
	return idx
}

// addDep records that node `from` depends on node `to` (from is
// scheduled in a later batch than to), connecting the underlying dag.AcyclicGraph
// edge in the same direction so Validate()/Cycles() can be used for
// diagnostics.
func (g *Graph) addDep(from, to int) {
	if from == to {
		return
	}
	for _, existing := range g.deps[from] {
		if existing == to {
			return
		}
	}
	g.deps[from] = append(g.deps[from], to)
	g.dag.Connect(dag.BasicEdge(from, to))
}

// Derive builds the action graph for primaryTargets over projects: one
// SetupTool per platform seen, one InstallDeps per platform (always
// workspace-wide; no per-project InstallDeps node is derived), one
// SyncProject per touched project, and a RunTarget/RunPersistentTarget per
// requested task — plus every transitive task dependency.
func Derive(projects map[string]*project.Project, primaryTargets []target.Target, opts Options) (*Graph, error) {
	g := New()

	setupTool := map[util.PlatformType]int{}
	installDeps := map[string]int{} // platform|project -> index
	syncProject := map[string]int{}
	runTarget := map[string]int{} // target string -> index

	var visit func(tgt target.Target) (int, error)
	visit = func(tgt target.Target) (int, error) {
		key := tgt.String()
		if idx, ok := runTarget[key]; ok {
			return idx, nil
		}

		projID := tgt.Scope.ProjectID.String()
		proj, ok := projects[projID]
		if !ok {
			return 0, &errs.UnconfiguredIdError{Id: projID}
		}
		tsk, ok := proj.Tasks[tgt.TaskID.String()]
		if !ok {
			return 0, fmt.Errorf("project %q has no task %q", projID, tgt.TaskID)
		}

		kind := action.NodeRunTarget
		if opts.Persistent || tsk.IsPersistent() {
			kind = action.NodeRunPersistentTarget
		}
		nodeIdx := g.add(action.Node{Kind: kind, Target: tgt})
		runTarget[key] = nodeIdx

		if opts.Context != nil {
			affected, err := tsk.IsAffected(opts.Context.TouchedFiles())
			if err != nil {
				return 0, err
			}
			if affected {
				opts.Context.MarkAffected(key)
			}
		}

		platform := tsk.Platform
		setupIdx := ensureSetupTool(g, setupTool, platform)
		installIdx := ensureInstallDeps(g, installDeps, platform, "")
		syncIdx := ensureSyncProject(g, syncProject, projID)

		g.addDep(installIdx, setupIdx)
		g.addDep(syncIdx, installIdx)
		g.addDep(nodeIdx, syncIdx)

		for _, dep := range tsk.Deps {
			depIdx, err := visit(dep)
			if err != nil {
				return 0, err
			}
			g.addDep(nodeIdx, depIdx)
		}

		return nodeIdx, nil
	}

	for _, tgt := range primaryTargets {
		if _, err := visit(tgt); err != nil {
			return nil, err
		}
	}

	if opts.Dependents {
		for _, tgt := range primaryTargets {
			for _, proj := range projects {
				for _, candidate := range allTargets(proj) {
					if !dependsOn(projects, candidate, tgt) {
						continue
					}
					if opts.AffectedOnly && opts.Context != nil {
						ctsk, ok := proj.Tasks[candidate.TaskID.String()]
						if !ok {
							continue
						}
						affected, err := ctsk.IsAffected(opts.Context.TouchedFiles())
						if err != nil {
							return nil, err
						}
						if !affected {
							continue
						}
					}
					if _, err := visit(candidate); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	return g, nil
}

func ensureSetupTool(g *Graph, table map[util.PlatformType]int, platform util.PlatformType) int {
	if idx, ok := table[platform]; ok {
		return idx
	}
	idx := g.add(action.Node{Kind: action.NodeSetupTool, Platform: platform})
	table[platform] = idx
	return idx
}

func ensureInstallDeps(g *Graph, table map[string]int, platform util.PlatformType, project string) int {
	key := string(platform) + "|" + project
	if idx, ok := table[key]; ok {
		return idx
	}
	idx := g.add(action.Node{Kind: action.NodeInstallDeps, Platform: platform, Project: project})
	table[key] = idx
	return idx
}

func ensureSyncProject(g *Graph, table map[string]int, project string) int {
	if idx, ok := table[project]; ok {
		return idx
	}
	idx := g.add(action.Node{Kind: action.NodeSyncProject, Project: project})
	table[project] = idx
	return idx
}

func allTargets(p *project.Project) []target.Target {
	out := make([]target.Target, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		out = append(out, t.Target)
	}
	return out
}

func dependsOn(projects map[string]*project.Project, candidate, needle target.Target) bool {
	proj, ok := projects[candidate.Scope.ProjectID.String()]
	if !ok {
		return false
	}
	tsk, ok := proj.Tasks[candidate.TaskID.String()]
	if !ok {
		return false
	}
	for _, d := range tsk.Deps {
		if d.Equal(needle) {
			return true
		}
	}
	return false
}

// Nodes returns every node in the graph, in insertion order.
func (g *Graph) Nodes() []action.Node {
	return append([]action.Node(nil), g.nodes...)
}

// Dependencies returns the node indices that node i directly depends on,
// letting a pipeline propagate a failure from i to its dependents without
// re-deriving the graph.
func (g *Graph) Dependencies(i int) []int {
	return append([]int(nil), g.deps[i]...)
}

// IndexOf returns the index of the node carrying label, and whether one
// was found.
func (g *Graph) IndexOf(label string) (int, bool) {
	idx, ok := g.key[label]
	return idx, ok
}

// SortBatchedTopological returns batches of node indices: each batch is a
// maximal antichain of nodes whose remaining dependencies have all been
// scheduled in a prior batch. Order within a batch is unspecified (sorted
// here only for deterministic test output).
func (g *Graph) SortBatchedTopological() ([][]action.Node, error) {
	n := len(g.nodes)
	remaining := make([]map[int]bool, n)
	for i := range remaining {
		remaining[i] = map[int]bool{}
		for _, d := range g.deps[i] {
			remaining[i][d] = true
		}
	}

	scheduled := make([]bool, n)
	var batches [][]action.Node
	left := n

	for left > 0 {
		var batchIdx []int
		for i := 0; i < n; i++ {
			if scheduled[i] || len(remaining[i]) > 0 {
				continue
			}
			batchIdx = append(batchIdx, i)
		}

		if len(batchIdx) == 0 {
			return nil, &errs.CyclicDependencyError{Path: remainingLabels(g, scheduled)}
		}

		sort.Ints(batchIdx)

		batch := make([]action.Node, 0, len(batchIdx))
		for _, idx := range batchIdx {
			scheduled[idx] = true
			batch = append(batch, g.nodes[idx])
			left--
		}

		for i := 0; i < n; i++ {
			if scheduled[i] {
				continue
			}
			for _, idx := range batchIdx {
				delete(remaining[i], idx)
			}
		}

		batches = append(batches, batch)
	}

	return batches, nil
}

func remainingLabels(g *Graph, scheduled []bool) []string {
	var labels []string
	for i, done := range scheduled {
		if !done {
			labels = append(labels, g.nodes[i].Label())
		}
	}
	return labels
}
