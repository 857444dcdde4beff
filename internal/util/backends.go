// Package util holds small shared types used across the project graph and
// pipeline: the platform/language/project-type enums the Inherited Tasks
// Manager keys its lookup order on (C3), and toolchain version-constraint
// helpers. Nothing else in the module calls the semver helpers.
//
// Adapted from turbo's cli/internal/util/backends.go, which held the
// analogous "is this a yarn-family backend" check and a semver constraint
// helper for the same Masterminds/semver dependency.
package util

import (
	"github.com/Masterminds/semver"
)

// PlatformType names the runtime/toolchain family a project or task runs
// under. "Unknown" means platform detection hasn't run yet (C5 step 7) or
// that none of the configured platform plug-ins claimed the project.
type PlatformType string

const (
	PlatformUnknown PlatformType = ""
	PlatformNode    PlatformType = "node"
	PlatformDeno    PlatformType = "deno"
	PlatformBun     PlatformType = "bun"
	PlatformRust    PlatformType = "rust"
	PlatformGo      PlatformType = "go"
	PlatformPython  PlatformType = "python"
	PlatformSystem  PlatformType = "system"
)

func (p PlatformType) String() string {
	if p == PlatformUnknown {
		return "unknown"
	}
	return string(p)
}

func (p PlatformType) IsUnknown() bool { return p == PlatformUnknown }

// IsJSFamily reports whether p is one of the JavaScript-family runtimes,
// matching the inherited tasks manager's lookup-order rule: "*", then
// platform (if JS-family), then language, then "platform-project_type"
// (if JS-family), then "language-project_type".
func (p PlatformType) IsJSFamily() bool {
	return p == PlatformNode || p == PlatformDeno || p == PlatformBun
}

// LanguageType names a project's detected programming language, independent
// of which platform plug-in runs its tasks.
type LanguageType string

const (
	LanguageUnknown    LanguageType = "unknown"
	LanguageJavaScript LanguageType = "javascript"
	LanguageTypeScript LanguageType = "typescript"
	LanguageRust       LanguageType = "rust"
	LanguageGo         LanguageType = "go"
	LanguagePython     LanguageType = "python"
	LanguageRuby       LanguageType = "ruby"
)

func (l LanguageType) String() string { return string(l) }

// ProjectType names a project's declared role, used both by the Inherited
// Tasks Manager's lookup order and by enforce_constraints' relationship
// matrix.
type ProjectType string

const (
	ProjectUnknown     ProjectType = "unknown"
	ProjectApplication ProjectType = "application"
	ProjectLibrary     ProjectType = "library"
	ProjectTool        ProjectType = "tool"
	ProjectAutomation  ProjectType = "automation"
	ProjectConfig      ProjectType = "configuration"
)

func (t ProjectType) String() string { return string(t) }

// MustCompileSemverConstraint compiles text into a semver constraint and
// panics on error. Intended for constraints known at compile time (e.g. a
// platform plug-in's minimum supported toolchain version); a bad constraint
// there is a programming error, not user input.
func MustCompileSemverConstraint(text string) *semver.Constraints {
	c, err := semver.NewConstraint(text)
	if err != nil {
		panic(err)
	}
	return c
}

// ToolchainSatisfies reports whether the project's declared toolchain
// version (e.g. read from a project's "node" or "go" config block) satisfies
// constraint. An unparsable version reports false. Task-platform detection
// does not call it.
func ToolchainSatisfies(version string, constraint *semver.Constraints) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return constraint.Check(v)
}
