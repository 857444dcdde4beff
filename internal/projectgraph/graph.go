// Package projectgraph implements the Project Graph Builder (C5):
// source/alias discovery, lazy depth-first project creation, task
// expansion through the Token Resolver and Inherited Tasks Manager,
// constraint enforcement, and cache fingerprinting.
//
// Grounded on original_source's crates/core/project-graph/src/
// project_builder.rs (ProjectGraphBuilder: preload, internal_load,
// create_project, expand_project, expand_task_*, enforce_constraints),
// adapted from petgraph's DiGraph into github.com/pyr-sh/dag the same
// way turbo's run.go builds its package graph.
package projectgraph

import (
	"fmt"
	"sort"

	"github.com/pyr-sh/dag"

	"github.com/ontools/moonrun/internal/project"
)

// ProjectGraph is the finalized, queryable result of a Builder run: every
// project keyed by id, plus the dependency edges between them.
type ProjectGraph struct {
	dag      dag.AcyclicGraph
	indices  map[string]int
	projects []*project.Project
	sources  map[string]string
	aliases  map[string]string
}

// Get returns the project registered under id, or nil if none was loaded.
func (g *ProjectGraph) Get(id string) *project.Project {
	idx, ok := g.indices[id]
	if !ok {
		return nil
	}
	return g.projects[idx]
}

// All returns every loaded project, sorted by id for deterministic
// iteration.
func (g *ProjectGraph) All() []*project.Project {
	out := append([]*project.Project(nil), g.projects...)
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}

// Dependencies returns the immediate dependency projects of id, in
// deterministic order.
func (g *ProjectGraph) Dependencies(id string) []*project.Project {
	proj := g.Get(id)
	if proj == nil {
		return nil
	}
	var out []*project.Project
	for _, depID := range proj.GetDependencyIds() {
		if dep := g.Get(depID); dep != nil {
			out = append(out, dep)
		}
	}
	return out
}

// Sources returns the id -> workspace-relative source directory map
// backing this graph, the same shape persisted to the projects-state
// cache.
func (g *ProjectGraph) Sources() map[string]string {
	return copyStringMap(g.sources)
}

// Aliases returns the alias -> id map backing this graph.
func (g *ProjectGraph) Aliases() map[string]string {
	return copyStringMap(g.aliases)
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (g *ProjectGraph) add(id string, p *project.Project) int {
	if idx, ok := g.indices[id]; ok {
		g.projects[idx] = p
		return idx
	}
	idx := len(g.projects)
	g.projects = append(g.projects, p)
	g.indices[id] = idx
	g.dag.Add(idx)
	return idx
}

func (g *ProjectGraph) connect(fromID, toID string) error {
	fromIdx, ok := g.indices[fromID]
	if !ok {
		return fmt.Errorf("connect: unknown project %q", fromID)
	}
	toIdx, ok := g.indices[toID]
	if !ok {
		return fmt.Errorf("connect: unknown project %q", toID)
	}
	g.dag.Connect(dag.BasicEdge(fromIdx, toIdx))
	return nil
}
