// Package tokenresolver implements the Token Resolver (C4): expansion of
// token functions (@group, @dirs, @files, @globs, @root, @in, @out) and
// token variables ($project, $task, $date, ...) inside task fields, subject
// to a TokenContext that restricts which tokens are legal where.
//
// There is no token.rs in the reference sources this module is grounded
// on — the function/variable table comes directly from the component
// design. Its structure (a Context enum gating legality, a resolve pass
// producing (paths, globs) pairs) mirrors how turbo's
// internal/env and internal/run packages gate token substitution by call
// site.
package tokenresolver

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/ontools/moonrun/internal/errs"
	"github.com/ontools/moonrun/internal/util"
)

// Context restricts which token kinds are legal at a given expansion site.
type Context int

const (
	ContextCommand Context = iota
	ContextArgs
	ContextInputs
	ContextOutputs
)

func (c Context) String() string {
	switch c {
	case ContextCommand:
		return "command"
	case ContextArgs:
		return "args"
	case ContextInputs:
		return "inputs"
	case ContextOutputs:
		return "outputs"
	default:
		return "unknown"
	}
}

// Data supplies the values substituted for $-prefixed variables and the
// lookups backing @group/@dirs/@files/@globs/@root/@in/@out.
type Data struct {
	Project       string
	ProjectRoot   string // absolute
	ProjectSource string // workspace-relative
	ProjectType   util.ProjectType
	Language      util.LanguageType
	Target        string
	Task          string
	TaskPlatform  util.PlatformType
	TaskType      string
	WorkspaceRoot string // absolute

	// FileGroups maps a group name (as used in @group/@dirs/@files/@globs)
	// to its configured workspace-relative patterns.
	FileGroups map[string][]string

	// InArgs/OutArgs back @in(index)/@out(index) lookups, indexed
	// positionally.
	InArgs  []string
	OutArgs []string

	Now time.Time
}

// Result is the product of resolving one token function: every produced
// path (workspace-relative, not yet relativized to a base) and every
// produced glob pattern. Variable substitution (ResolveVars) returns a
// string instead.
type Result struct {
	Paths []string
	Globs []string
}

var (
	funcPattern = regexp.MustCompile(`^@([a-zA-Z]+)\(([^)]*)\)$`)
	varPattern  = regexp.MustCompile(`\$([a-zA-Z]+)`)
)

var legalFuncContexts = map[string]map[Context]bool{
	"group": {ContextArgs: true, ContextInputs: true, ContextOutputs: true},
	"dirs":  {ContextArgs: true, ContextInputs: true, ContextOutputs: true},
	"files": {ContextArgs: true, ContextInputs: true, ContextOutputs: true},
	"globs": {ContextArgs: true, ContextInputs: true, ContextOutputs: true},
	"root":  {ContextArgs: true, ContextInputs: true, ContextOutputs: true},
	"in":    {ContextArgs: true, ContextCommand: true},
	"out":   {ContextArgs: true, ContextCommand: true},
}

// IsTokenFunc reports whether value is syntactically a token function call.
func IsTokenFunc(value string) bool { return funcPattern.MatchString(value) }

// HasTokenVar reports whether value contains at least one $variable.
func HasTokenVar(value string) bool { return varPattern.MatchString(value) }

// ResolveFunc expands a single `@func(arg)` string under ctx.
func ResolveFunc(value string, ctx Context, data Data) (Result, error) {
	m := funcPattern.FindStringSubmatch(value)
	if m == nil {
		return Result{}, &errs.TokenError{Kind: errs.UnknownToken, Token: value}
	}
	name, arg := m[1], m[2]

	allowed, known := legalFuncContexts[name]
	if !known {
		return Result{}, &errs.TokenError{Kind: errs.UnknownToken, Token: value}
	}
	if !allowed[ctx] {
		return Result{}, &errs.TokenError{Kind: errs.InvalidTokenContext, Token: value}
	}

	switch name {
	case "group":
		return resolveGroup(data, arg, false, false)
	case "dirs":
		return resolveGroup(data, arg, true, false)
	case "files":
		return resolveGroup(data, arg, false, true)
	case "globs":
		return resolveGroup(data, arg, false, false)
	case "root":
		group, ok := data.FileGroups[arg]
		if !ok || len(group) == 0 {
			return Result{}, &errs.TokenError{Kind: errs.UnknownToken, Token: value}
		}
		return Result{Paths: []string{path.Join(data.ProjectSource, commonRoot(group))}}, nil
	case "in":
		return resolveIndexed(data.InArgs, arg, value)
	case "out":
		return resolveIndexed(data.OutArgs, arg, value)
	default:
		return Result{}, &errs.TokenError{Kind: errs.UnknownToken, Token: value}
	}
}

// resolveGroup expands @group/@dirs/@files/@globs. dirsOnly and filesOnly
// are reserved for future filesystem-aware partitioning; in the absence of
// a live filesystem at resolve time, every group entry is classified by
// ClassifyPathEntry, matching how expand_task_inputs partitions its own
// results downstream.
func resolveGroup(data Data, name string, _dirsOnly, _filesOnly bool) (Result, error) {
	group, ok := data.FileGroups[name]
	if !ok {
		return Result{}, &errs.TokenError{Kind: errs.UnknownToken, Token: fmt.Sprintf("@group(%s)", name)}
	}

	var out Result
	for _, entry := range group {
		resolved := path.Clean(path.Join(data.ProjectSource, entry))
		if isGlob, value := ClassifyPathEntry(resolved); isGlob {
			out.Globs = append(out.Globs, value)
		} else {
			out.Paths = append(out.Paths, value)
		}
	}
	return out, nil
}

// ClassifyPathEntry decides whether a resolved, workspace-relative path
// entry is a concrete file or a directory that should be walked
// recursively. A literal glob pattern is returned unchanged. An
// extension-less entry is assumed to name a directory — moon's own file
// groups commonly list a source directory ("src") rather than spelling
// out "src/**/*" — and is expanded to the same "/**/*" glob moon uses for
// that case; this includes extension-less files such as "Makefile". An
// entry with a file extension is a concrete path.
func ClassifyPathEntry(resolved string) (isGlob bool, value string) {
	if strings.ContainsAny(resolved, "*?[") {
		return true, resolved
	}
	if path.Ext(resolved) == "" {
		return true, resolved + "/**/*"
	}
	return false, resolved
}

func resolveIndexed(list []string, indexStr, token string) (Result, error) {
	idx, err := parseIndex(indexStr)
	if err != nil || idx < 0 || idx >= len(list) {
		return Result{}, &errs.TokenError{Kind: errs.InvalidTokenIndex, Token: token}
	}
	return Result{Paths: []string{list[idx]}}, nil
}

func parseIndex(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, fmt.Errorf("empty index")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a digit: %q", s)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

// ResolveVars substitutes every $variable occurrence in value with its
// string form from data. Unknown variables are left as a literal "" per
// the UnknownToken rule, surfaced to the caller as an error so a task
// misconfiguration is caught at expansion time rather than silently
// producing an empty command fragment.
func ResolveVars(value string, data Data) (string, error) {
	var resolveErr error
	out := varPattern.ReplaceAllStringFunc(value, func(tok string) string {
		name := tok[1:]
		v, err := lookupVar(name, data)
		if err != nil {
			resolveErr = err
			return tok
		}
		return v
	})
	if resolveErr != nil {
		return "", resolveErr
	}
	return out, nil
}

func lookupVar(name string, data Data) (string, error) {
	switch name {
	case "project":
		return data.Project, nil
	case "projectRoot":
		return data.ProjectRoot, nil
	case "projectSource":
		return data.ProjectSource, nil
	case "projectType":
		return data.ProjectType.String(), nil
	case "language":
		return data.Language.String(), nil
	case "target":
		return data.Target, nil
	case "task":
		return data.Task, nil
	case "taskPlatform":
		return data.TaskPlatform.String(), nil
	case "taskType":
		return data.TaskType, nil
	case "workspaceRoot":
		return data.WorkspaceRoot, nil
	case "date":
		return data.Now.Format("2006-01-02"), nil
	case "time":
		return data.Now.Format("15:04:05"), nil
	case "datetime":
		return data.Now.Format("2006-01-02_15:04:05"), nil
	case "timestamp":
		return fmt.Sprintf("%d", data.Now.Unix()), nil
	default:
		return "", &errs.TokenError{Kind: errs.UnknownToken, Token: "$" + name}
	}
}

// Relativize implements expand_task_args' path relativization: express
// workspaceRelativePath (workspace-root-relative, e.g. "packages/app/src") as a
// path relative to base, prefixing with "./" unless the result already
// walks upward with "..".
func Relativize(base, workspaceRelativePath string) string {
	rel, err := relPath(base, workspaceRelativePath)
	if err != nil {
		return workspaceRelativePath
	}
	rel = path.Clean(rel)
	if !strings.HasPrefix(rel, "..") {
		rel = "./" + rel
	}
	return rel
}

func relPath(base, target string) (string, error) {
	baseParts := splitPath(base)
	targetParts := splitPath(target)

	i := 0
	for i < len(baseParts) && i < len(targetParts) && baseParts[i] == targetParts[i] {
		i++
	}

	up := strings.Repeat("../", len(baseParts)-i)
	down := strings.Join(targetParts[i:], "/")

	switch {
	case up == "" && down == "":
		return ".", nil
	case down == "":
		return strings.TrimSuffix(up, "/"), nil
	default:
		return up + down, nil
	}
}

func splitPath(p string) []string {
	p = strings.Trim(path.Clean(p), "/")
	if p == "." || p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// commonRoot returns the longest common directory prefix of entries,
// falling back to "." when entries share none. Used by @root(name).
func commonRoot(entries []string) string {
	if len(entries) == 0 {
		return "."
	}
	root := path.Dir(entries[0])
	for _, e := range entries[1:] {
		d := path.Dir(e)
		for d != root && !strings.HasPrefix(d, root+"/") && root != "." {
			root = path.Dir(root)
		}
	}
	return root
}
