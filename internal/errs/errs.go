// Package errs implements the orchestrator's error taxonomy. Each kind is
// a distinct type so callers can discriminate with errors.As; messages
// are formatted with the standard library's fmt only.
package errs

import "fmt"

// UnconfiguredIdError is raised when a graph load is asked for an id/alias
// that has no entry in the workspace's project sources.
type UnconfiguredIdError struct {
	Id string
}

func (e *UnconfiguredIdError) Error() string {
	return fmt.Sprintf("project %q is not configured in the workspace", e.Id)
}

// CyclicDependencyError is raised when sort_batched_topological cannot make
// progress because a cycle remains in the action graph.
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency detected: %v", e.Path)
}

// TypeRelationshipViolationError is raised by enforce_constraints when two
// projects' declared types violate the relationship matrix.
type TypeRelationshipViolationError struct {
	Project, Dependency string
	Reason              string
}

func (e *TypeRelationshipViolationError) Error() string {
	return fmt.Sprintf("project %q may not depend on %q: %s", e.Project, e.Dependency, e.Reason)
}

// TagRelationshipViolationError is raised by enforce_constraints when a
// configured tag-relationship rule is violated.
type TagRelationshipViolationError struct {
	Project, Dependency, SourceTag string
	RequiredTags                  []string
}

func (e *TagRelationshipViolationError) Error() string {
	return fmt.Sprintf("project %q (tag %q) depends on %q, which lacks one of required tags %v",
		e.Project, e.SourceTag, e.Dependency, e.RequiredTags)
}

// PersistentDepRequirementError is raised when a non-persistent task depends
// on a persistent one.
type PersistentDepRequirementError struct {
	Task, Dependency string
}

func (e *PersistentDepRequirementError) Error() string {
	return fmt.Sprintf("task %q is not persistent but depends on persistent task %q", e.Task, e.Dependency)
}

// UnsupportedTargetScopeError is raised by expand_task_deps when a task
// dependency uses a scope illegal in that position (All or Tag).
type UnsupportedTargetScopeError struct {
	Target string
}

func (e *UnsupportedTargetScopeError) Error() string {
	return fmt.Sprintf("target %q cannot be used as a task dependency", e.Target)
}

// InvalidEnvFileError is raised when a configured env file exists but fails
// to parse.
type InvalidEnvFileError struct {
	Path  string
	Cause error
}

func (e *InvalidEnvFileError) Error() string {
	return fmt.Sprintf("invalid env file %q: %v", e.Path, e.Cause)
}

func (e *InvalidEnvFileError) Unwrap() error { return e.Cause }

// TokenError covers UnknownToken, InvalidTokenContext and InvalidTokenIndex.
type TokenError struct {
	Kind  TokenErrorKind
	Token string
}

// TokenErrorKind enumerates the token-resolver failure kinds.
type TokenErrorKind int

const (
	UnknownToken TokenErrorKind = iota
	InvalidTokenContext
	InvalidTokenIndex
)

func (e *TokenError) Error() string {
	switch e.Kind {
	case InvalidTokenContext:
		return fmt.Sprintf("token %q is not legal in this context", e.Token)
	case InvalidTokenIndex:
		return fmt.Sprintf("token %q references an out-of-range index", e.Token)
	default:
		return fmt.Sprintf("unknown token %q", e.Token)
	}
}

// TaskValidationError is raised by the Inherited Tasks Manager when a merged
// config fails finalization/validation.
type TaskValidationError struct {
	Context string
	Cause   error
}

func (e *TaskValidationError) Error() string {
	return fmt.Sprintf("task validation failed (%s): %v", e.Context, e.Cause)
}

func (e *TaskValidationError) Unwrap() error { return e.Cause }

// ActionFailedError wraps a terminal per-action failure.
type ActionFailedError struct {
	Label string
	Cause error
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("action %q failed: %v", e.Label, e.Cause)
}

func (e *ActionFailedError) Unwrap() error { return e.Cause }

// AbortedError wraps the reason the pipeline aborted (bail, FailedAndAbort,
// or a task-level panic/error).
type AbortedError struct {
	Reason string
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("pipeline aborted: %s", e.Reason)
}

// UnknownActionNodeError is raised when the pipeline cannot resolve a node
// index back to an action node.
type UnknownActionNodeError struct {
	Index int
}

func (e *UnknownActionNodeError) Error() string {
	return fmt.Sprintf("unknown action node at index %d", e.Index)
}
