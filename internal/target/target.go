// Package target implements parsing and formatting of project:task targets (C1).
package target

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/ontools/moonrun/internal/id"
)

// ScopeKind discriminates the five legal forms a Target's scope can take.
type ScopeKind int

const (
	// All selects every project (":task"). Legal only in selection, never
	// as a task dependency.
	All ScopeKind = iota
	// Deps selects every dependency project of the owning project ("^:task").
	Deps
	// OwnSelf selects the owning project itself ("~:task").
	OwnSelf
	// Project selects one named project ("id:task").
	Project
	// Tag selects every project carrying a tag ("#tag:task"). Legal only
	// in selection, never as a task dependency.
	Tag
)

// Scope is the resolved (kind, id) pair backing a Target. ProjectID/TagID
// is only meaningful when Kind is Project or Tag respectively.
type Scope struct {
	Kind      ScopeKind
	ProjectID id.Id
	TagID     id.Id
}

// Target is a (scope, task) pair addressing one or more tasks.
type Target struct {
	Scope  Scope
	TaskID id.Id
}

// New builds a Target from a project scope and task id.
func New(projectID, taskID id.Id) Target {
	return Target{Scope: Scope{Kind: Project, ProjectID: projectID}, TaskID: taskID}
}

// NewOwnSelf builds a "~:task" target.
func NewOwnSelf(taskID id.Id) Target {
	return Target{Scope: Scope{Kind: OwnSelf}, TaskID: taskID}
}

// NewDeps builds a "^:task" target.
func NewDeps(taskID id.Id) Target {
	return Target{Scope: Scope{Kind: Deps}, TaskID: taskID}
}

// Parse decodes one of the canonical string forms:
//
//	:task       All
//	^:task      Deps
//	~:task      OwnSelf
//	id:task     Project(id)
//	#tag:task   Tag(tag)
func Parse(raw string) (Target, error) {
	switch {
	case strings.HasPrefix(raw, "^:"):
		taskID, err := id.New(strings.TrimPrefix(raw, "^:"))
		if err != nil {
			return Target{}, errors.Wrapf(err, "target %q", raw)
		}
		return Target{Scope: Scope{Kind: Deps}, TaskID: taskID}, nil

	case strings.HasPrefix(raw, "~:"):
		taskID, err := id.New(strings.TrimPrefix(raw, "~:"))
		if err != nil {
			return Target{}, errors.Wrapf(err, "target %q", raw)
		}
		return Target{Scope: Scope{Kind: OwnSelf}, TaskID: taskID}, nil

	case strings.HasPrefix(raw, ":"):
		taskID, err := id.New(strings.TrimPrefix(raw, ":"))
		if err != nil {
			return Target{}, errors.Wrapf(err, "target %q", raw)
		}
		return Target{Scope: Scope{Kind: All}, TaskID: taskID}, nil

	case strings.HasPrefix(raw, "#"):
		rest := strings.TrimPrefix(raw, "#")
		parts := strings.SplitN(rest, ":", 2)
		if len(parts) != 2 {
			return Target{}, errors.Errorf("target %q: missing task after tag", raw)
		}
		tagID, err := id.New(parts[0])
		if err != nil {
			return Target{}, errors.Wrapf(err, "target %q", raw)
		}
		taskID, err := id.New(parts[1])
		if err != nil {
			return Target{}, errors.Wrapf(err, "target %q", raw)
		}
		return Target{Scope: Scope{Kind: Tag, TagID: tagID}, TaskID: taskID}, nil

	default:
		parts := strings.SplitN(raw, ":", 2)
		if len(parts) != 2 {
			return Target{}, errors.Errorf("target %q: expected project:task", raw)
		}
		projectID, err := id.New(parts[0])
		if err != nil {
			return Target{}, errors.Wrapf(err, "target %q", raw)
		}
		taskID, err := id.New(parts[1])
		if err != nil {
			return Target{}, errors.Wrapf(err, "target %q", raw)
		}
		return Target{Scope: Scope{Kind: Project, ProjectID: projectID}, TaskID: taskID}, nil
	}
}

// String formats t back into its canonical form. Parse(t.String()) == t
// for every valid Target.
func (t Target) String() string {
	switch t.Scope.Kind {
	case All:
		return fmt.Sprintf(":%s", t.TaskID)
	case Deps:
		return fmt.Sprintf("^:%s", t.TaskID)
	case OwnSelf:
		return fmt.Sprintf("~:%s", t.TaskID)
	case Tag:
		return fmt.Sprintf("#%s:%s", t.Scope.TagID, t.TaskID)
	case Project:
		return fmt.Sprintf("%s:%s", t.Scope.ProjectID, t.TaskID)
	default:
		return fmt.Sprintf("<unknown scope>:%s", t.TaskID)
	}
}

// IsDependencyLegal reports whether this target's scope may legally be used
// as a task dependency (anything but All or Tag).
func (t Target) IsDependencyLegal() bool {
	return t.Scope.Kind != All && t.Scope.Kind != Tag
}

// Equal reports structural equality, used to detect and drop self-references
// and duplicate dependency targets.
func (t Target) Equal(other Target) bool {
	return t.Scope.Kind == other.Scope.Kind &&
		t.Scope.ProjectID == other.Scope.ProjectID &&
		t.Scope.TagID == other.Scope.TagID &&
		t.TaskID == other.TaskID
}
