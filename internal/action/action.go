// Package action implements the Action and ActionContext data model: the
// unit of work the dependency graph (C6) produces and the pipeline (C8)
// executes, plus the run-wide mutable context threaded through every
// action.
//
// There is no direct moon action.rs in the retrieved sources; the shape
// is grounded on project_builder.rs's enforce_constraints (which reads
// task.is_persistent()) and pipeline.rs's action result handling, adapted
// into an explicit Go struct plus a sync.RWMutex-guarded context, since
// action state is read and written from concurrent pipeline workers.
package action

import (
	"fmt"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set"

	"github.com/ontools/moonrun/internal/target"
	"github.com/ontools/moonrun/internal/util"
)

// NodeKind distinguishes the five action node variants.
type NodeKind string

const (
	NodeSetupTool            NodeKind = "setup-tool"
	NodeInstallDeps          NodeKind = "install-deps"
	NodeSyncProject          NodeKind = "sync-project"
	NodeRunTarget            NodeKind = "run-target"
	NodeRunPersistentTarget  NodeKind = "run-persistent-target"
)

// Node is one node of the action dependency graph.
type Node struct {
	Kind     NodeKind
	Platform util.PlatformType // SetupTool, InstallDeps
	Project  string            // InstallDeps (optional), SyncProject
	Target   target.Target     // RunTarget, RunPersistentTarget
}

// Label renders a human-readable identity for logging and run reports.
func (n Node) Label() string {
	switch n.Kind {
	case NodeSetupTool:
		return fmt.Sprintf("SetupTool(%s)", n.Platform)
	case NodeInstallDeps:
		if n.Project != "" {
			return fmt.Sprintf("InstallDeps(%s, %s)", n.Platform, n.Project)
		}
		return fmt.Sprintf("InstallDeps(%s)", n.Platform)
	case NodeSyncProject:
		return fmt.Sprintf("SyncProject(%s)", n.Project)
	case NodeRunTarget:
		return fmt.Sprintf("RunTarget(%s)", n.Target)
	case NodeRunPersistentTarget:
		return fmt.Sprintf("RunPersistentTarget(%s)", n.Target)
	default:
		return "Unknown"
	}
}

// Status is an Action's terminal (or pending) state.
type Status string

const (
	StatusPending         Status = "pending"
	StatusPassed          Status = "passed"
	StatusCached          Status = "cached"
	StatusCachedFromRemote Status = "cached-from-remote"
	StatusFailed          Status = "failed"
	StatusFailedAndAbort  Status = "failed-and-abort"
	StatusSkipped         Status = "skipped"
	StatusInvalid         Status = "invalid"
)

// Action is the unit the pipeline schedules and executes. Lifecycle:
// created Pending, transitions exactly once to a terminal status, never
// mutated thereafter (enforced by convention — the pipeline is the only
// writer, and it writes once via Finish).
type Action struct {
	Node      Node
	Status    Status
	Duration  time.Duration
	Error     error
	Label     string
	LogTarget string

	startedAt time.Time
}

// New creates a Pending action for node, stamping its label and
// log_target the way process_action's caller does before launching the
// concurrent task (log_target = "pipeline:batch:<b>:<i>").
func New(node Node, batch, index int) *Action {
	return &Action{
		Node:      node,
		Status:    StatusPending,
		Label:     node.Label(),
		LogTarget: fmt.Sprintf("pipeline:batch:%d:%d", batch, index),
		startedAt: time.Now(),
	}
}

// Finish transitions the action to its terminal status, stamping Duration
// from the moment New was called.
func (a *Action) Finish(status Status, err error) {
	a.Status = status
	a.Error = err
	a.Duration = time.Since(a.startedAt)
}

// HasFailed reports whether the action ended in a failed state.
func (a *Action) HasFailed() bool {
	return a.Status == StatusFailed || a.Status == StatusFailedAndAbort
}

// ShouldAbort reports the FailedAndAbort abort condition.
func (a *Action) ShouldAbort() bool { return a.Status == StatusFailedAndAbort }

// IsCacheHit reports whether the action avoided real work.
func (a *Action) IsCacheHit() bool {
	return a.Status == StatusCached || a.Status == StatusCachedFromRemote
}

// Context is the shared, mutable-under-lock run state threaded through
// every action: touched files, affected targets, the primary targets the
// user requested, the active profile selection, and passthrough args for
// the underlying process executor.
type Context struct {
	mu sync.RWMutex

	touchedFiles    mapset.Set
	affectedTargets mapset.Set
	primaryTargets  mapset.Set
	profile         string
	passthroughArgs []string
}

// NewContext returns a Context seeded with the given primary targets.
func NewContext(primaryTargets []string) *Context {
	primary := mapset.NewSet()
	for _, t := range primaryTargets {
		primary.Add(t)
	}
	return &Context{
		touchedFiles:    mapset.NewSet(),
		affectedTargets: mapset.NewSet(),
		primaryTargets:  primary,
	}
}

// AddTouchedFiles registers files as touched by this run (e.g. changed
// since a VCS baseline). Acquires exclusive access.
func (c *Context) AddTouchedFiles(files []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range files {
		c.touchedFiles.Add(f)
	}
}

// TouchedFiles returns a read-only snapshot set. Acquires shared access.
func (c *Context) TouchedFiles() mapset.Set {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.touchedFiles.Clone()
}

// MarkAffected flips a target's affected flag. Acquires exclusive access.
func (c *Context) MarkAffected(tgt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.affectedTargets.Add(tgt)
}

// IsAffected reports whether tgt has been marked affected. Acquires shared
// access.
func (c *Context) IsAffected(tgt string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.affectedTargets.Contains(tgt)
}

// IsPrimary reports whether tgt was one of the user's originally requested
// targets (as opposed to one pulled in transitively).
func (c *Context) IsPrimary(tgt string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.primaryTargets.Contains(tgt)
}

// SetProfile/Profile control the active profiling selection (e.g. a
// requested CPU/heap profile name passed through to process executors).
func (c *Context) SetProfile(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profile = name
}

func (c *Context) Profile() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile
}

// SetPassthroughArgs/PassthroughArgs carry extra CLI args forwarded
// verbatim to the underlying process executor (e.g. after a `--`).
func (c *Context) SetPassthroughArgs(args []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.passthroughArgs = append([]string(nil), args...)
}

func (c *Context) PassthroughArgs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.passthroughArgs...)
}
