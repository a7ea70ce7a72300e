// Package executor turns a resolved project into compile and link jobs,
// runs them with bounded parallelism, and keeps the build cache and
// manifests in sync.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/RihenUniverse/jenga/internal/cache"
	"github.com/RihenUniverse/jenga/internal/deps"
	"github.com/RihenUniverse/jenga/internal/fingerprint"
	"github.com/RihenUniverse/jenga/internal/manifest"
	"github.com/RihenUniverse/jenga/internal/workspace"
)

// Default subprocess timeouts. Compiles of large translation units take
// minutes; links of large binaries take longer.
const (
	DefaultCompileTimeout = 10 * time.Minute
	DefaultLinkTimeout    = 30 * time.Minute
)

// Options is the CLI-exposed scalars bag the core consumes.
type Options struct {
	Config   string
	Platform string
	Arch     string

	Jobs     int
	Strategy Strategy

	NoCache  bool
	Force    bool
	FailFast bool

	CompileTimeout time.Duration
	LinkTimeout    time.Duration
}

// Diagnostic carries one failed job's captured output. Output is surfaced
// verbatim; display layers may trim it, persisted logs must not.
type Diagnostic struct {
	Source string
	Output string
	Err    error
}

// BuildResult aggregates one project's build. Counts cover everything
// attempted, even when the build fails partway.
type BuildResult struct {
	Project string
	Success bool

	Compiled int
	Cached   int
	Failed   int
	Linked   int

	Diagnostics []Diagnostic
	Duration    time.Duration
}

// Executor owns the compile/link pipeline for one build session.
type Executor struct {
	ws    *workspace.Workspace
	store *cache.Store // nil when caching is disabled
	opts  Options
	state *BuildState

	strategy    fingerprint.Strategy
	manifestDir string

	runner Runner
	log    *slog.Logger
}

// New builds an executor over a workspace. store may be nil to disable
// caching entirely; every file then recompiles and nothing is persisted.
func New(ws *workspace.Workspace, store *cache.Store, opts Options) (*Executor, error) {
	if !ws.HasConfiguration(opts.Config) {
		return nil, fmt.Errorf("unknown configuration %q (valid: %s)",
			opts.Config, strings.Join(ws.Configurations, ", "))
	}

	if !ws.HasPlatform(opts.Platform) {
		return nil, fmt.Errorf("unknown platform %q (valid: %s)",
			opts.Platform, strings.Join(ws.Platforms, ", "))
	}

	strategy, err := fingerprint.ParseStrategy(ws.Fingerprint)
	if err != nil {
		return nil, err
	}

	if opts.CompileTimeout <= 0 {
		opts.CompileTimeout = DefaultCompileTimeout
	}

	if opts.LinkTimeout <= 0 {
		opts.LinkTimeout = DefaultLinkTimeout
	}

	manifestDir := filepath.Join(ws.Location, StateDirName, "manifests")
	if store != nil {
		manifestDir = filepath.Join(store.Dir(), "manifests")
	}

	state := NewBuildState()

	return &Executor{
		ws:          ws,
		store:       store,
		opts:        opts,
		state:       state,
		strategy:    strategy,
		manifestDir: manifestDir,
		runner:      execRunner{},
		log: slog.Default().With(
			slog.String("session", state.SessionID),
			slog.String("config", opts.Config),
			slog.String("platform", opts.Platform)),
	}, nil
}

// StateDirName is the workspace-relative hidden directory holding every
// persisted cache kind. Deleting it forces a fully clean state.
const StateDirName = ".jenga"

// StateDir returns the hidden state directory for a workspace root.
func StateDir(root string) string {
	return filepath.Join(root, StateDirName)
}

// State exposes the session bookkeeping.
func (e *Executor) State() *BuildState {
	return e.state
}

// CompileProject runs the full pipeline for one project: resolve, hooks,
// incremental partition, parallel compile, link, cache update.
// Configuration problems (unknown project, missing toolchain executable)
// return an error; compile/link failures return a result with Success=false
// and the diagnostics collected.
func (e *Executor) CompileProject(ctx context.Context, name string) (*BuildResult, error) {
	start := time.Now()

	p, ok := e.ws.Projects[name]
	if !ok {
		return nil, fmt.Errorf("unknown project %q (valid: %s)",
			name, strings.Join(e.ws.ProjectNames(), ", "))
	}

	tc, err := e.ws.ToolchainFor(p)
	if err != nil {
		return nil, err
	}

	res, err := e.resolve(p, tc)
	if err != nil {
		return nil, err
	}

	resolvedCompiler, err := e.runner.LookPath(res.compiler)
	if err != nil {
		return nil, &ToolchainNotFoundError{Toolchain: tc.Name, Path: res.compiler}
	}
	res.compiler = resolvedCompiler

	result := &BuildResult{Project: name}
	e.log.Info("building project",
		slog.String("project", name), slog.Int("sources", len(res.sources)))

	fail := func() (*BuildResult, error) {
		result.Duration = time.Since(start)
		e.state.MarkFailed(name, e.opts.Platform, e.opts.Arch)
		return result, nil
	}

	if diag := e.runHooks(ctx, "pre-build", res.preBuild, res); diag != nil {
		result.Diagnostics = append(result.Diagnostics, *diag)
		return fail()
	}

	m, err := e.loadOrGenerateManifest(ctx, res, tc, name)
	if err != nil {
		return nil, err
	}

	// Partition into needs-compile vs cached.
	var jobs []manifest.CompileCommand
	for _, c := range m.Compiles {
		rebuild, reason := e.needsRecompile(c.Source, c.Object, res.optionsHash)
		if !rebuild {
			result.Cached++
			continue
		}

		e.log.Debug("recompiling",
			slog.String("source", c.Source), slog.String("reason", reason))
		jobs = append(jobs, c)
	}

	if err := e.compileJobs(ctx, res, jobs, result); err != nil {
		return nil, err
	}

	if result.Failed > 0 {
		return fail()
	}

	objects := make([]string, 0, len(m.Compiles))
	for _, c := range m.Compiles {
		objects = append(objects, c.Object)
	}

	linked, diag := e.linkProject(ctx, res, m, objects)
	if diag != nil {
		result.Diagnostics = append(result.Diagnostics, *diag)
		return fail()
	}

	if linked {
		result.Linked = 1
	}

	if diag := e.runHooks(ctx, "post-build", res.postBuild, res); diag != nil {
		result.Diagnostics = append(result.Diagnostics, *diag)
		return fail()
	}

	copied, err := e.copyRuntimeDeps(res)
	if err != nil {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{Err: err})
		return fail()
	}

	e.persistProjectState(name, res, m, objects, copied)

	result.Success = true
	result.Duration = time.Since(start)
	e.state.MarkCompiled(name, e.opts.Platform, e.opts.Arch)

	e.log.Info("project built",
		slog.String("project", name),
		slog.Int("compiled", result.Compiled),
		slog.Int("cached", result.Cached),
		slog.Int("linked", result.Linked),
		slog.Duration("duration", result.Duration))

	return result, nil
}

func (e *Executor) loadOrGenerateManifest(ctx context.Context, res *resolution, tc *workspace.Toolchain, name string) (*manifest.Manifest, error) {
	mPath := manifest.Path(e.manifestDir, name, e.opts.Config, e.opts.Platform)

	m := manifest.Load(mPath)
	if !manifest.NeedsRegeneration(m, res.identityHash, res.sources) {
		return m, nil
	}

	e.log.Debug("regenerating build manifest", slog.String("project", name))

	m = &manifest.Manifest{
		Project:      name,
		Config:       e.opts.Config,
		Platform:     e.opts.Platform,
		IdentityHash: res.identityHash,
		GeneratedAt:  time.Now(),
	}

	discoverer := deps.New(res.includeDirs)
	for _, src := range res.sources {
		obj := res.objectPath(e.ws, src, tc.Family)
		cmd := compileCommand(tc, res.compiler, res, src, obj)

		discovered, err := discoverer.Discover(ctx, tc, src, res.defines)
		if err != nil {
			e.log.Debug("dependency discovery failed",
				slog.String("source", src), slog.Any("error", err))
		}

		m.Compiles = append(m.Compiles, manifest.CompileCommand{
			Source: src,
			Object: obj,
			Exe:    cmd.Path,
			Args:   cmd.Args,
			Deps:   discovered,
		})
	}

	link := linkCommand(tc, res.compiler, res, objectsOf(m))
	m.Link = manifest.LinkCommand{Exe: link.Path, Args: link.Args, Output: res.outputPath}

	if err := m.Save(mPath); err != nil {
		return nil, fmt.Errorf("project %s: %w", name, err)
	}

	return m, nil
}

func objectsOf(m *manifest.Manifest) []string {
	objects := make([]string, 0, len(m.Compiles))
	for _, c := range m.Compiles {
		objects = append(objects, c.Object)
	}

	return objects
}

// compileJobs dispatches the needs-compile set across the worker pool and
// folds results into result. Per-file cache entries are written for every
// job that succeeded, even when a sibling failed.
func (e *Executor) compileJobs(ctx context.Context, res *resolution, jobs []manifest.CompileCommand, result *BuildResult) error {
	if len(jobs) == 0 {
		return nil
	}

	workers := e.opts.Jobs
	if e.opts.Strategy == Sequential {
		workers = 1
	}

	type jobOutput struct {
		output []byte
		err    error
	}

	outputs := make([]jobOutput, len(jobs))

	type indexed struct {
		i   int
		cmd manifest.CompileCommand
	}

	items := make([]indexed, len(jobs))
	for i, cmd := range jobs {
		items[i] = indexed{i, cmd}
	}

	errs, started := runPool(ctx, items, workers, e.opts.FailFast, func(ctx context.Context, it indexed) error {
		jobCtx, cancel := context.WithTimeout(ctx, e.opts.CompileTimeout)
		defer cancel()

		if err := os.MkdirAll(filepath.Dir(it.cmd.Object), 0o755); err != nil {
			outputs[it.i] = jobOutput{err: err}
			return err
		}

		out, err := e.runner.Run(jobCtx, e.ws.Location, it.cmd.Exe, it.cmd.Args...)
		outputs[it.i] = jobOutput{output: out, err: err}
		return err
	})

	for i, job := range jobs {
		if !started[i] {
			continue // fail-fast skipped it
		}

		if errs[i] != nil {
			result.Failed++
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Source: job.Source,
				Output: string(outputs[i].output),
				Err:    errs[i],
			})
			continue
		}

		result.Compiled++
		e.recordFileState(job, res.optionsHash)
	}

	return nil
}

func (e *Executor) recordFileState(job manifest.CompileCommand, optionsHash string) {
	if e.store == nil {
		return
	}

	fp, err := fingerprint.File(job.Source, e.strategy)
	if err != nil {
		return
	}

	st := &cache.FileState{
		Fingerprint:     fp,
		OptionsHash:     optionsHash,
		Deps:            job.Deps,
		DepFingerprints: make(map[string]string, len(job.Deps)),
	}

	for _, dep := range job.Deps {
		if depFp, err := fingerprint.File(dep, e.strategy); err == nil {
			st.DepFingerprints[dep] = depFp
		}
	}

	if err := e.store.PutFile(job.Source, st); err != nil {
		e.log.Warn("failed to update cache entry",
			slog.String("source", job.Source), slog.Any("error", err))
	}
}

// linkProject performs the link/archive step unless the link cache proves
// it redundant. Returns whether a link actually ran.
func (e *Executor) linkProject(ctx context.Context, res *resolution, m *manifest.Manifest, objects []string) (bool, *Diagnostic) {
	key := cache.LinkKey(res.project.Name, e.opts.Config, e.opts.Platform)

	objectsFp, libsFp, err := e.linkInputs(objects, res.libFiles)
	if err != nil {
		return false, &Diagnostic{Err: fmt.Errorf("failed to fingerprint link inputs: %w", err)}
	}

	libs := sortedLibs(res)

	relink, reason := e.needsRelink(key, res.outputPath, objectsFp, libs, libsFp)
	if !relink {
		e.log.Debug("link skipped", slog.String("project", res.project.Name))
		return false, nil
	}

	e.log.Debug("linking",
		slog.String("project", res.project.Name), slog.String("reason", reason))

	if diag := e.runHooks(ctx, "pre-link", res.preLink, res); diag != nil {
		return false, diag
	}

	if err := os.MkdirAll(res.outputDir, 0o755); err != nil {
		return false, &Diagnostic{Err: err}
	}

	linkCtx, cancel := context.WithTimeout(ctx, e.opts.LinkTimeout)
	defer cancel()

	out, err := e.runner.Run(linkCtx, e.ws.Location, m.Link.Exe, m.Link.Args...)
	if err != nil {
		return false, &Diagnostic{
			Source: res.outputPath,
			Output: string(out),
			Err:    fmt.Errorf("link failed: %w", err),
		}
	}

	if diag := e.runHooks(ctx, "post-link", res.postLink, res); diag != nil {
		return false, diag
	}

	if e.store != nil {
		// The link succeeded with the fingerprints computed above; objects
		// did not change during the link (compiles for this project are
		// already done).
		err := e.store.PutLink(key, &cache.LinkState{
			ObjectsFingerprint: objectsFp,
			Libraries:          libs,
			LibsFingerprint:    libsFp,
			Output:             res.outputPath,
		})
		if err != nil {
			e.log.Warn("failed to update link cache", slog.Any("error", err))
		}
	}

	return true, nil
}

// runHooks executes a command list strictly sequentially, stopping on the
// first failure. Hooks commonly have ordering dependencies between them.
func (e *Executor) runHooks(ctx context.Context, stage string, commands []string, res *resolution) *Diagnostic {
	for _, line := range commands {
		hookCtx, cancel := context.WithTimeout(ctx, e.opts.LinkTimeout)

		shell, args := shellCommand(line)
		out, err := e.runner.Run(hookCtx, e.ws.Location, shell, args...)
		cancel()

		if err != nil {
			return &Diagnostic{
				Output: string(out),
				Err:    &HookError{Stage: stage, Command: line, Output: string(out), Err: err},
			}
		}
	}

	return nil
}

// copyRuntimeDeps places dependency shared libraries next to the linked
// output so executables run in place.
func (e *Executor) copyRuntimeDeps(res *resolution) ([]string, error) {
	if len(res.runtimeDeps) == 0 {
		return nil, nil
	}

	switch res.project.Kind {
	case workspace.StaticLib, workspace.SharedLib:
		return nil, nil
	}

	var copied []string
	for _, dep := range res.runtimeDeps {
		dst := filepath.Join(res.outputDir, filepath.Base(dep))
		if dst == dep {
			continue
		}

		if err := copyFile(dep, dst); err != nil {
			return nil, fmt.Errorf("failed to copy runtime dependency %s: %w", dep, err)
		}

		copied = append(copied, dst)
	}

	return copied, nil
}

func (e *Executor) persistProjectState(name string, res *resolution, m *manifest.Manifest, objects, copied []string) {
	if e.store == nil {
		return
	}

	outputs := append([]string{}, objects...)
	outputs = append(outputs, res.outputPath)
	outputs = append(outputs, copied...)

	depSet := make(map[string]bool)
	for _, c := range m.Compiles {
		for _, d := range c.Deps {
			depSet[d] = true
		}
	}

	depList := make([]string, 0, len(depSet))
	for d := range depSet {
		depList = append(depList, d)
	}
	sort.Strings(depList)

	err := e.store.PutProject(name, &cache.ProjectState{
		Outputs: outputs,
		Sources: res.sources,
		Deps:    depList,
	})
	if err != nil {
		e.log.Warn("failed to record project outputs",
			slog.String("project", name), slog.Any("error", err))
	}
}
