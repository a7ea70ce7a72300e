package executor

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RihenUniverse/jenga/internal/fingerprint"
	"github.com/RihenUniverse/jenga/internal/vars"
	"github.com/RihenUniverse/jenga/internal/workspace"
)

// resolution is the fully-expanded view of one project for one
// (config, platform) pair: sources resolved, dependency lists inherited,
// every path absolute. It lives for a single CompileProject call.
type resolution struct {
	project   *workspace.Project
	toolchain *workspace.Toolchain
	compiler  string

	sources   []string
	objectDir string

	outputDir  string
	outputPath string

	includeDirs []string
	libDirs     []string
	defines     []string

	// libFiles are dependency project outputs, linked by absolute path.
	libFiles []string

	// extraLinks are plain library names from the project's links list.
	extraLinks []string

	// runtimeDeps are dependency shared-library outputs copied next to the
	// linked binary.
	runtimeDeps []string

	expander *vars.Context

	optionsHash  string
	identityHash string

	preBuild, postBuild, preLink, postLink []string
}

func (e *Executor) resolve(p *workspace.Project, tc *workspace.Toolchain) (*resolution, error) {
	res := &resolution{
		project:   p,
		toolchain: tc,
		compiler:  tc.CompilerFor(p.Language),
	}

	ex := vars.NewContext()
	ex.Set("workspace", "name", e.ws.Name)
	ex.Set("workspace", "location", e.ws.Location)
	ex.Set("project", "name", p.Name)
	ex.Set("project", "kind", string(p.Kind))
	ex.Set("config", "name", e.opts.Config)
	ex.Set("platform", "name", e.opts.Platform)
	ex.Set("platform", "arch", e.opts.Arch)
	res.expander = ex

	outputDir := p.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join("bin", e.opts.Config+"-"+e.opts.Platform)
	}

	outputDir, err := ex.Expand(outputDir)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", p.Name, err)
	}

	res.outputDir = e.abs(outputDir)
	res.outputPath = filepath.Join(res.outputDir, p.OutputBase(e.opts.Platform))
	res.objectDir = filepath.Join(e.ws.Location, "obj", e.opts.Config+"-"+e.opts.Platform, p.Name)

	res.defines = append(res.defines, tc.Defines...)
	res.defines = append(res.defines, p.Defines...)

	includeDirs, err := ex.ExpandAll(p.IncludeDirs)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", p.Name, err)
	}

	for _, dir := range includeDirs {
		res.includeDirs = append(res.includeDirs, e.abs(dir))
	}

	libDirs, err := ex.ExpandAll(p.LibDirs)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", p.Name, err)
	}

	for _, dir := range libDirs {
		res.libDirs = append(res.libDirs, e.abs(dir))
	}

	res.extraLinks = append(res.extraLinks, p.Links...)

	if err := e.inheritFromDependencies(res, p); err != nil {
		return nil, err
	}

	if err := e.resolveSources(res, p, ex); err != nil {
		return nil, err
	}

	res.preBuild, err = ex.ExpandAll(p.PreBuild)
	if err == nil {
		res.postBuild, err = ex.ExpandAll(p.PostBuild)
	}
	if err == nil {
		res.preLink, err = ex.ExpandAll(p.PreLink)
	}
	if err == nil {
		res.postLink, err = ex.ExpandAll(p.PostLink)
	}
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", p.Name, err)
	}

	opts := fingerprint.Options{
		Language:     p.Language,
		Dialect:      p.Dialect,
		Optimization: p.Optimization,
		DebugSymbols: p.DebugSymbols,
		WarningLevel: p.WarningLevel,
		Defines:      res.defines,
		IncludeDirs:  res.includeDirs,
		Links:        append(append([]string{}, res.extraLinks...), res.libFiles...),
		LibDirs:      res.libDirs,
		CompilerFlags: append(append([]string{}, tc.Flags...),
			p.CompilerFlags...),
		LinkerFlags: p.LinkerFlags,
		Config:      e.opts.Config,
		Platform:    e.opts.Platform,
	}
	res.optionsHash = opts.Hash()

	deps := append([]string{}, p.DependsOn...)
	sort.Strings(deps)
	res.identityHash = fingerprint.Combine([]string{
		"project:" + p.Name,
		"kind:" + string(p.Kind),
		"toolchain:" + tc.Name,
		"compiler:" + res.compiler,
		"deps:" + strings.Join(deps, ","),
		"options:" + res.optionsHash,
	})

	return res, nil
}

// inheritFromDependencies folds the transitive dependsOn closure into the
// resolution: a dependency's include dirs are inherited, its output
// directory becomes a link-search directory, and its output becomes a link
// input. Shared-library outputs are also remembered for runtime copying.
func (e *Executor) inheritFromDependencies(res *resolution, p *workspace.Project) error {
	seen := map[string]bool{p.Name: true}

	var visit func(name string) error
	visit = func(name string) error {
		for _, depName := range e.ws.Projects[name].DependsOn {
			dep, ok := e.ws.Projects[depName]
			if !ok || seen[depName] {
				continue
			}

			seen[depName] = true

			for _, dir := range dep.IncludeDirs {
				expanded, err := res.expander.Expand(dir)
				if err != nil {
					return fmt.Errorf("project %s: %w", dep.Name, err)
				}

				res.includeDirs = append(res.includeDirs, e.abs(expanded))
			}

			depOut := dep.OutputDir
			if depOut == "" {
				depOut = filepath.Join("bin", e.opts.Config+"-"+e.opts.Platform)
			}

			expanded, err := res.expander.Expand(depOut)
			if err != nil {
				return fmt.Errorf("project %s: %w", dep.Name, err)
			}

			depDir := e.abs(expanded)
			depPath := filepath.Join(depDir, dep.OutputBase(e.opts.Platform))

			switch dep.Kind {
			case workspace.StaticLib:
				res.libDirs = append(res.libDirs, depDir)
				res.libFiles = append(res.libFiles, depPath)
			case workspace.SharedLib:
				res.libDirs = append(res.libDirs, depDir)
				res.libFiles = append(res.libFiles, depPath)
				res.runtimeDeps = append(res.runtimeDeps, depPath)
			}

			if err := visit(depName); err != nil {
				return err
			}
		}

		return nil
	}

	return visit(p.Name)
}

func (e *Executor) resolveSources(res *resolution, p *workspace.Project, ex *vars.Context) error {
	patterns, err := ex.ExpandAll(p.Sources)
	if err != nil {
		return fmt.Errorf("project %s: %w", p.Name, err)
	}

	excludes, err := ex.ExpandAll(p.Excludes)
	if err != nil {
		return fmt.Errorf("project %s: %w", p.Name, err)
	}

	// Test binaries must not double-define main: a TestSuite additionally
	// excludes its dependencies' declared entry-point files.
	if p.Kind == workspace.TestSuite {
		for _, depName := range p.DependsOn {
			if dep, ok := e.ws.Projects[depName]; ok {
				excludes = append(excludes, dep.MainFiles...)
			}
		}
	}

	sources, err := workspace.ResolveSources(e.ws.Location, patterns, excludes)
	if err != nil {
		return fmt.Errorf("project %s: %w", p.Name, err)
	}

	res.sources = sources
	return nil
}

// objectPath maps a source file to its object file under the project's
// object directory, keeping the source tree shape to avoid basename
// collisions.
func (res *resolution) objectPath(ws *workspace.Workspace, src string, family workspace.Family) string {
	rel, err := filepath.Rel(ws.Location, src)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(src)
	}

	ext := ".o"
	if family == workspace.FamilyMSVC {
		ext = ".obj"
	}

	return filepath.Join(res.objectDir, rel+ext)
}

func (e *Executor) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(e.ws.Location, path)
}
