package projectgraph

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/ontools/moonrun/internal/cache"
	"github.com/ontools/moonrun/internal/config"
	"github.com/ontools/moonrun/internal/errs"
	"github.com/ontools/moonrun/internal/id"
	"github.com/ontools/moonrun/internal/inheritedtasks"
	"github.com/ontools/moonrun/internal/platform"
	"github.com/ontools/moonrun/internal/project"
	"github.com/ontools/moonrun/internal/target"
	"github.com/ontools/moonrun/internal/task"
	"github.com/ontools/moonrun/internal/tokenresolver"
	"github.com/ontools/moonrun/internal/util"
	"github.com/ontools/moonrun/internal/vcs"
)

var inputVarPattern = regexp.MustCompile(`^\$[A-Z_][A-Z0-9_]*$`)

// Builder runs the Project Graph Builder's preload/load/create_project/
// expand_project/enforce_constraints sequence, accumulating a ProjectGraph
// across however many top-level Load/LoadAll calls a run needs.
type Builder struct {
	root      string
	wsConfig  *config.WorkspaceConfig
	vcs       vcs.VCS
	cache     cache.Cache
	inherited *inheritedtasks.Manager
	platforms *platform.Registry
	logger    hclog.Logger

	sources map[string]string // id -> workspace-relative source dir
	aliases map[string]string // alias -> id

	graph   *ProjectGraph
	onStack map[string]bool // recursion-stack cycle guard, reset per top-level Load

	collisions CollisionResolver // nil means "alias always wins"

	IsCached bool
	Hash     string
}

// NewBuilder constructs a Builder ready for Preload.
func NewBuilder(workspaceRoot string, wsConfig *config.WorkspaceConfig, v vcs.VCS, c cache.Cache, inherited *inheritedtasks.Manager, platforms *platform.Registry, logger hclog.Logger) *Builder {
	return &Builder{
		root:      workspaceRoot,
		wsConfig:  wsConfig,
		vcs:       v,
		cache:     c,
		inherited: inherited,
		platforms: platforms,
		logger:    logger,
		sources:   map[string]string{},
		aliases:   map[string]string{},
		graph: &ProjectGraph{
			indices: map[string]int{},
			sources: map[string]string{},
			aliases: map[string]string{},
		},
		onStack: map[string]bool{},
	}
}

// Preload assembles the id -> source map (from explicit sources, globs, or
// both), discovers platform-native aliases, fingerprints the workspace via
// a stable hash of aliases + sources + VCS content hashes of every project
// and inherited-tasks config file, and compares it against the persisted
// projects-state cache to decide IsCached.
func (b *Builder) Preload() error {
	if err := b.assembleSources(); err != nil {
		return err
	}
	b.assembleAliases()

	configPaths := b.configFilePaths()
	var hashes map[string]string
	if b.vcs.IsEnabled() {
		h, err := b.vcs.GetFileHashes(configPaths, true, 100)
		if err != nil {
			return fmt.Errorf("hashing project config files: %w", err)
		}
		hashes = h
	}

	hash := ""
	if len(hashes) > 0 || b.vcs.IsEnabled() {
		hash = graphHash(b.aliases, b.sources, hashes)
	}

	state, err := b.cache.CacheProjectsState()
	if err != nil {
		return fmt.Errorf("loading projects-state cache: %w", err)
	}

	b.IsCached = hash != "" && state.LastHash == hash
	b.Hash = hash

	state.LastHash = hash
	state.LastGlobTime = uint64(time.Now().Unix())
	state.Globs = b.wsConfig.Projects.Globs
	state.Projects = copyStringMap(b.sources)
	if err := state.Save(); err != nil {
		b.logger.Warn("failed to persist projects-state cache", "error", err)
	}

	b.graph.sources = copyStringMap(b.sources)
	b.graph.aliases = copyStringMap(b.aliases)
	return nil
}

func (b *Builder) assembleSources() error {
	kind := b.wsConfig.Projects.Kind

	if kind == config.ProjectsSources || kind == config.ProjectsBoth {
		for id, src := range b.wsConfig.Projects.Sources {
			b.sources[id] = src
		}
	}

	if kind == config.ProjectsGlobs || kind == config.ProjectsBoth {
		// Matches listed in the workspace root's .gitignore are not projects;
		// without a readable .gitignore, ignorer stays nil.
		ignorer, _ := gitignore.CompileIgnoreFile(filepath.Join(b.root, ".gitignore"))
		for _, pattern := range b.wsConfig.Projects.Globs {
			matches, err := filepath.Glob(filepath.Join(b.root, pattern))
			if err != nil {
				return fmt.Errorf("expanding project glob %q: %w", pattern, err)
			}
			for _, m := range matches {
				info, err := os.Stat(m)
				if err != nil || !info.IsDir() {
					continue
				}
				rel, err := filepath.Rel(b.root, m)
				if err != nil {
					continue
				}
				rel = filepath.ToSlash(rel)
				if ignorer != nil && ignorer.MatchesPath(rel) {
					continue
				}
				projID := filepath.Base(m)
				if _, exists := b.sources[projID]; !exists {
					b.sources[projID] = rel
				}
			}
		}
	}

	return nil
}

func (b *Builder) assembleAliases() {
	for projID, source := range b.sources {
		root := filepath.Join(b.root, source)
		p := b.platforms.Detect(root)
		alias := p.LoadAlias(root)
		if alias == "" {
			continue
		}

		if literalID, isLiteralID := b.sources[alias]; isLiteralID && literalID != projID {
			winner := projID
			if b.collisions != nil {
				winner = b.collisions.Resolve(alias, projID, literalID)
			}
			if winner != projID {
				continue
			}
		}

		b.aliases[alias] = projID
	}
}

// configFilePaths returns every per-project and inherited-tasks config path,
// workspace-relative, fed into the fingerprint hash.
func (b *Builder) configFilePaths() []string {
	var paths []string
	for _, source := range b.sources {
		paths = append(paths, path.Join(source, "project.yml"))
	}
	paths = append(paths, ".moon/tasks.yml")
	if entries, err := os.ReadDir(filepath.Join(b.root, ".moon", "tasks")); err == nil {
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".yml") {
				paths = append(paths, path.Join(".moon", "tasks", e.Name()))
			}
		}
	}
	sort.Strings(paths)
	return paths
}

// KnownIds returns every project id Preload discovered, sorted, for a
// caller that needs to expand an All-scope target ("all projects") before
// any of them have been individually Load-ed.
func (b *Builder) KnownIds() []string {
	ids := make([]string, 0, len(b.sources))
	for id := range b.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Load resolves idOrAlias (an alias is tried first, falling back to a
// literal project id) and recursively creates it and every transitive
// dependency, returning the finished project.
func (b *Builder) Load(idOrAlias string) (*project.Project, error) {
	resolved := idOrAlias
	if aliasedID, ok := b.aliases[idOrAlias]; ok {
		resolved = aliasedID
	}

	b.onStack = map[string]bool{}
	idx, err := b.internalLoad(resolved)
	if err != nil {
		return nil, err
	}
	return b.graph.projects[idx], nil
}

// LoadAll loads every id/alias in idsOrAliases, returning them in the same
// order.
func (b *Builder) LoadAll(idsOrAliases []string) ([]*project.Project, error) {
	out := make([]*project.Project, 0, len(idsOrAliases))
	for _, idOrAlias := range idsOrAliases {
		p, err := b.Load(idOrAlias)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (b *Builder) internalLoad(projID string) (int, error) {
	if idx, ok := b.graph.indices[projID]; ok {
		return idx, nil
	}

	source, ok := b.sources[projID]
	if !ok {
		return 0, &errs.UnconfiguredIdError{Id: projID}
	}

	proj, err := b.createProject(projID, source)
	if err != nil {
		return 0, err
	}

	b.onStack[projID] = true
	defer delete(b.onStack, projID)

	for _, depID := range proj.GetDependencyIds() {
		if b.onStack[depID] {
			b.logger.Warn("cyclic project dependency detected, dropping edge", "from", projID, "to", depID)
			continue
		}
		if _, ok := b.sources[depID]; !ok {
			return 0, &errs.UnconfiguredIdError{Id: depID}
		}
		if _, err := b.internalLoad(depID); err != nil {
			return 0, err
		}
	}

	if err := b.expandProject(proj); err != nil {
		return 0, fmt.Errorf("expanding project %q: %w", projID, err)
	}

	idx := b.graph.add(projID, proj)
	for _, depID := range proj.GetDependencyIds() {
		if _, ok := b.graph.indices[depID]; ok {
			if err := b.graph.connect(projID, depID); err != nil {
				return 0, err
			}
		}
	}
	return idx, nil
}

// createProject loads a project's own config, detects its platform/language,
// merges in its Inherited Tasks Manager config, folds in platform-inferred
// implicit dependencies, and assembles its task map (inherited as the base,
// project-local task config layered on top via Task.Merge, platform-inferred
// tasks filling any id neither one claimed).
func (b *Builder) createProject(projID, source string) (*project.Project, error) {
	root := filepath.Join(b.root, source)
	cfg, err := config.LoadProjectConfig(filepath.Join(root, "project.yml"))
	if err != nil {
		return nil, err
	}

	detected := b.platforms.Detect(root)

	language := cfg.Language
	if language == "" || language == util.LanguageUnknown {
		language = detected.Language()
	}
	projectType := cfg.Type
	if projectType == "" {
		projectType = util.ProjectUnknown
	}
	if cfg.Platform == util.PlatformUnknown {
		cfg.Platform = detected.Kind()
	}

	proj := project.New(projID, source, b.root, cfg)
	proj.Language = language

	for alias, aliasedID := range b.aliases {
		if aliasedID == projID {
			proj.Alias = alias
			break
		}
	}

	inheritedCfg, err := b.inherited.GetInheritedConfig(detected.Kind(), language, projectType, cfg.Tags)
	if err != nil {
		return nil, err
	}
	proj.InheritedConfig = inheritedCfg

	for _, depID := range detected.LoadImplicitDependencies(root, b.aliases) {
		proj.AddImplicitDependency(depID)
	}

	for taskID, inheritedTaskCfg := range inheritedCfg.Tasks {
		tgt, err := taskTarget(projID, taskID)
		if err != nil {
			return nil, err
		}
		t, err := task.FromConfig(tgt, inheritedTaskCfg)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", taskID, err)
		}
		if localCfg, ok := cfg.Tasks[taskID]; ok {
			t.Merge(localCfg)
		}
		proj.Tasks[taskID] = t
	}
	for taskID, localCfg := range cfg.Tasks {
		if _, exists := proj.Tasks[taskID]; exists {
			continue
		}
		tgt, err := taskTarget(projID, taskID)
		if err != nil {
			return nil, err
		}
		t, err := task.FromConfig(tgt, localCfg)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", taskID, err)
		}
		proj.Tasks[taskID] = t
	}
	for taskID, platformCfg := range detected.LoadTasks(root) {
		if _, exists := proj.Tasks[taskID]; exists {
			continue
		}
		tgt, err := taskTarget(projID, taskID)
		if err != nil {
			continue
		}
		t, err := task.FromConfig(tgt, platformCfg)
		if err != nil {
			return nil, fmt.Errorf("inferred task %q: %w", taskID, err)
		}
		proj.AddInferredTask(taskID, t)
	}

	return proj, nil
}

func taskTarget(projID, taskID string) (target.Target, error) {
	pID, err := id.New(projID)
	if err != nil {
		return target.Target{}, err
	}
	tID, err := id.New(taskID)
	if err != nil {
		return target.Target{}, err
	}
	return target.New(pID, tID), nil
}

// expandProject runs the fixed expand_task_* sequence over every task the
// project owns: env, deps, inputs, outputs, args, command, then determines
// its final type.
func (b *Builder) expandProject(proj *project.Project) error {
	for _, t := range proj.Tasks {
		if t.Platform.IsUnknown() {
			t.Platform = proj.Config.Platform
		}

		if err := b.expandTaskEnv(t, proj); err != nil {
			return err
		}
		if err := b.expandTaskDeps(t, proj); err != nil {
			return err
		}
		if err := b.expandTaskInputs(t, proj); err != nil {
			return err
		}
		if err := b.expandTaskOutputs(t, proj); err != nil {
			return err
		}
		if err := b.expandTaskArgs(t, proj); err != nil {
			return err
		}
		if err := b.expandTaskCommand(t, proj); err != nil {
			return err
		}
		t.DetermineType()
	}
	return nil
}

func (b *Builder) tokenData(proj *project.Project, t *task.Task) tokenresolver.Data {
	return tokenresolver.Data{
		Project:       proj.Id,
		ProjectRoot:   proj.Root,
		ProjectSource: proj.Source,
		ProjectType:   proj.Config.Type,
		Language:      proj.Language,
		Target:        t.Target.String(),
		Task:          t.Id.String(),
		TaskPlatform:  t.Platform,
		TaskType:      string(t.TypeOf),
		WorkspaceRoot: b.root,
		FileGroups:    proj.InheritedConfig.FileGroups,
		InArgs:        t.Inputs,
		OutArgs:       t.Outputs,
		Now:           time.Now(),
	}
}

func (b *Builder) expandTaskEnv(t *task.Task, proj *project.Project) error {
	if t.Options.EnvFile != "" {
		base := proj.Root
		if t.Options.RunFromWorkspaceRoot {
			base = b.root
		}
		envPath := filepath.Join(base, t.Options.EnvFile)

		if rel, err := filepath.Rel(b.root, envPath); err == nil {
			t.Inputs = append(t.Inputs, filepath.ToSlash(rel))
		}

		data, err := os.ReadFile(envPath)
		switch {
		case err != nil && os.IsNotExist(err):
			// absent env files are not fatal; a task may declare one
			// speculatively for local development only.
		case err != nil:
			return &errs.InvalidEnvFileError{Path: envPath, Cause: err}
		default:
			parsed, perr := parseEnvFile(data)
			if perr != nil {
				return &errs.InvalidEnvFileError{Path: envPath, Cause: perr}
			}
			for k, v := range parsed {
				if _, exists := t.Env[k]; !exists {
					t.Env[k] = v
				}
			}
		}
	}

	for k, v := range proj.Config.Env {
		if _, exists := t.Env[k]; !exists {
			t.Env[k] = v
		}
	}

	for k, v := range t.Env {
		t.Env[k] = expandEnvRefs(v, t.Env)
	}

	return nil
}

func parseEnvFile(data []byte) (map[string]string, error) {
	out := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed line %q", line)
		}
		key := strings.TrimSpace(parts[0])
		val := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		out[key] = val
	}
	return out, nil
}

func expandEnvRefs(value string, env map[string]string) string {
	return os.Expand(value, func(name string) string {
		if v, ok := env[name]; ok {
			return v
		}
		return os.Getenv(name)
	})
}

// expandTaskDeps expands ^:task (Deps), ~:task (OwnSelf) and literal
// project:task targets into concrete, deduplicated, self-reference-free
// dependency targets; All/Tag scopes are illegal here.
func (b *Builder) expandTaskDeps(t *task.Task, proj *project.Project) error {
	raw := append(append([]target.Target{}, proj.InheritedConfig.ImplicitDeps...), t.Deps...)

	var expanded []target.Target
	seen := map[string]bool{}
	add := func(tgt target.Target) {
		if tgt.Equal(t.Target) {
			return
		}
		key := tgt.String()
		if seen[key] {
			return
		}
		seen[key] = true
		expanded = append(expanded, tgt)
	}

	for _, dep := range raw {
		switch dep.Scope.Kind {
		case target.Deps:
			for _, depProjID := range proj.GetDependencyIds() {
				depProj := b.graph.Get(depProjID)
				if depProj == nil {
					continue
				}
				if _, hasTask := depProj.Tasks[dep.TaskID.String()]; !hasTask {
					continue
				}
				pID, err := id.New(depProjID)
				if err != nil {
					return err
				}
				add(target.New(pID, dep.TaskID))
			}
		case target.OwnSelf:
			pID, err := id.New(proj.Id)
			if err != nil {
				return err
			}
			add(target.New(pID, dep.TaskID))
		case target.Project:
			add(dep)
		default:
			return &errs.UnsupportedTargetScopeError{Target: dep.String()}
		}
	}

	t.Deps = expanded
	return nil
}

// expandTaskInputs partitions $VAR-shaped entries into InputVars, defaults
// to "**/*" when nothing else was configured, injects the global inherited-
// config input, then resolves every remaining entry (token function, token
// variable, or plain pattern) into InputPaths/InputGlobs.
func (b *Builder) expandTaskInputs(t *task.Task, proj *project.Project) error {
	raw := append(append([]string{}, proj.InheritedConfig.ImplicitInputs...), t.Inputs...)

	var plain []string
	for _, entry := range raw {
		if inputVarPattern.MatchString(entry) {
			t.InputVars.Add(strings.TrimPrefix(entry, "$"))
			continue
		}
		plain = append(plain, entry)
	}
	if len(plain) == 0 && !t.Flags.Contains(task.FlagNoInputs) {
		plain = append(plain, "**/*")
	}

	t.GlobalInputs = append(t.GlobalInputs, "/.moon/*.yml")
	combined := append(append([]string{}, plain...), t.GlobalInputs...)

	data := b.tokenData(proj, t)
	for _, entry := range combined {
		if tokenresolver.IsTokenFunc(entry) {
			res, err := tokenresolver.ResolveFunc(entry, tokenresolver.ContextInputs, data)
			if err != nil {
				return err
			}
			for _, p := range res.Paths {
				t.InputPaths.Add(p)
			}
			for _, g := range res.Globs {
				t.InputGlobs.Add(g)
			}
			continue
		}

		resolved := entry
		if tokenresolver.HasTokenVar(entry) {
			r, err := tokenresolver.ResolveVars(entry, data)
			if err != nil {
				return err
			}
			resolved = r
		}

		full := expandToWorkspaceRelative(proj.Source, resolved)
		if isGlob, value := tokenresolver.ClassifyPathEntry(full); isGlob {
			t.InputGlobs.Add(value)
		} else {
			t.InputPaths.Add(value)
		}
	}

	t.Inputs = plain
	return nil
}

// expandToWorkspaceRelative resolves entry against projSource, the way
// original_source's project_builder.rs does: a leading "/" means entry is
// already workspace-relative (used by global_inputs like "/.moon/*.yml"
// so every project's task hash breaks on the same core config change,
// not a project-local one); anything else is relative to the project's
// own source directory.
func expandToWorkspaceRelative(projSource, entry string) string {
	if strings.HasPrefix(entry, "/") {
		return path.Clean(strings.TrimPrefix(entry, "/"))
	}
	return path.Clean(path.Join(projSource, entry))
}

// expandTaskOutputs resolves every configured output (token functions via
// the token resolver; any other entry relative to the project source, a
// glob if it contains glob characters and a plain path otherwise, so an
// extension-less output is not widened to "/**/*" the way an input is),
// then removes the identical path/glob from the input sets, so an output
// that is also listed verbatim as an input does not re-trigger the task.
func (b *Builder) expandTaskOutputs(t *task.Task, proj *project.Project) error {
	data := b.tokenData(proj, t)

	for _, entry := range t.Outputs {
		if tokenresolver.IsTokenFunc(entry) {
			res, err := tokenresolver.ResolveFunc(entry, tokenresolver.ContextOutputs, data)
			if err != nil {
				return err
			}
			for _, p := range res.Paths {
				t.OutputPaths.Add(p)
				t.InputPaths.Remove(p)
			}
			for _, g := range res.Globs {
				t.OutputGlobs.Add(g)
				t.InputGlobs.Remove(g)
			}
			continue
		}

		resolved := entry
		if tokenresolver.HasTokenVar(entry) {
			r, err := tokenresolver.ResolveVars(entry, data)
			if err != nil {
				return err
			}
			resolved = r
		}

		full := expandToWorkspaceRelative(proj.Source, resolved)
		if strings.ContainsAny(resolved, "*?[") {
			t.OutputGlobs.Add(full)
			t.InputGlobs.Remove(full)
		} else {
			t.OutputPaths.Add(full)
			t.InputPaths.Remove(full)
		}
	}

	return nil
}

// expandTaskArgs resolves every token in the task's argument list, then
// relativizes any produced path to the task's run directory (project root,
// or the workspace root when RunFromWorkspaceRoot is set).
func (b *Builder) expandTaskArgs(t *task.Task, proj *project.Project) error {
	data := b.tokenData(proj, t)

	base := proj.Source
	if t.Options.RunFromWorkspaceRoot {
		base = "."
	}

	var newArgs []string
	for _, arg := range t.Args {
		switch {
		case tokenresolver.IsTokenFunc(arg):
			res, err := tokenresolver.ResolveFunc(arg, tokenresolver.ContextArgs, data)
			if err != nil {
				return err
			}
			for _, p := range res.Paths {
				newArgs = append(newArgs, tokenresolver.Relativize(base, p))
			}
			for _, g := range res.Globs {
				newArgs = append(newArgs, tokenresolver.Relativize(base, g))
			}
		case tokenresolver.HasTokenVar(arg):
			r, err := tokenresolver.ResolveVars(arg, data)
			if err != nil {
				return err
			}
			newArgs = append(newArgs, r)
		default:
			newArgs = append(newArgs, arg)
		}
	}

	t.Args = newArgs
	return nil
}

func (b *Builder) expandTaskCommand(t *task.Task, proj *project.Project) error {
	if !tokenresolver.HasTokenVar(t.Command) {
		return nil
	}
	data := b.tokenData(proj, t)
	resolved, err := tokenresolver.ResolveVars(t.Command, data)
	if err != nil {
		return err
	}
	t.Command = resolved
	return nil
}

// Build finalizes the graph: enforce_constraints runs last, over every
// project and task loaded so far, and the resulting ProjectGraph is handed
// back for the dependency graph (C6) and pipeline (C8) to consume.
func (b *Builder) Build() (*ProjectGraph, error) {
	if err := b.enforceConstraints(); err != nil {
		return nil, err
	}
	return b.graph, nil
}

// typeRelationships maps a project type to the set of dependency types it
// may legally depend on; a type absent from this map has no restriction.
var typeRelationships = map[util.ProjectType]map[util.ProjectType]bool{
	util.ProjectLibrary: {
		util.ProjectLibrary: true,
		util.ProjectConfig:  true,
	},
}

func (b *Builder) enforceConstraints() error {
	constraints := b.wsConfig.Constraints

	for _, proj := range b.graph.All() {
		for _, depID := range proj.GetDependencyIds() {
			depProj := b.graph.Get(depID)
			if depProj == nil {
				continue
			}

			if constraints.EnforceProjectTypeRelationships {
				if allowed, ok := typeRelationships[proj.Config.Type]; ok && !allowed[depProj.Config.Type] {
					return &errs.TypeRelationshipViolationError{
						Project:    proj.Id,
						Dependency: depID,
						Reason:     fmt.Sprintf("%s projects may not depend on %s projects", proj.Config.Type, depProj.Config.Type),
					}
				}
			}

			for _, tag := range proj.Tags {
				required, ok := constraints.TagRelationships[tag]
				if !ok {
					continue
				}
				if !anyTagMatches(depProj.Tags, required) {
					return &errs.TagRelationshipViolationError{
						Project:      proj.Id,
						Dependency:   depID,
						SourceTag:    tag,
						RequiredTags: required,
					}
				}
			}
		}

		for _, t := range proj.Tasks {
			for _, dep := range t.Deps {
				if dep.Scope.Kind != target.Project {
					continue
				}
				depProj := b.graph.Get(dep.Scope.ProjectID.String())
				if depProj == nil {
					continue
				}
				depTask, ok := depProj.Tasks[dep.TaskID.String()]
				if !ok {
					continue
				}
				if depTask.IsPersistent() && !t.IsPersistent() {
					return &errs.PersistentDepRequirementError{
						Task:       t.Target.String(),
						Dependency: dep.String(),
					}
				}
			}
		}
	}

	return nil
}

func anyTagMatches(tags, required []string) bool {
	for _, t := range tags {
		for _, r := range required {
			if t == r {
				return true
			}
		}
	}
	return false
}
