package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/RihenUniverse/jenga/internal/cache"
	"github.com/RihenUniverse/jenga/internal/config"
	"github.com/RihenUniverse/jenga/internal/executor"
	"github.com/RihenUniverse/jenga/internal/graph"
	"github.com/RihenUniverse/jenga/internal/workspace"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:          "build",
	Short:        "Build the workspace",
	Long:         `Compile and link every project in dependency order, recompiling only what changed.`,
	RunE:         runBuild,
	SilenceUsage: true,
}

func runBuild(cmd *cobra.Command, args []string) error {
	opts, err := config.NewLoader().LoadForBuild(cmd)
	if err != nil {
		return err
	}

	return buildWorkspace(cmd.Context(), opts)
}

// buildWorkspace is the shared build entry used by both the build and watch
// commands: load the workspace, compute the order, run every selected
// project through the executor and print the summary.
func buildWorkspace(ctx context.Context, opts *config.Options) error {
	ws, err := loadWorkspace(opts)
	if err != nil {
		return err
	}

	order, err := graph.ComputeBuildOrder(ws.Projects)
	if err != nil {
		return err
	}

	selected, err := selectProjects(ws, order, opts.Project)
	if err != nil {
		return err
	}

	var store *cache.Store
	if !opts.NoCache {
		store, err = cache.Open(executor.StateDir(ws.Location))
		if err != nil {
			slog.Warn("Build cache unavailable, building without it", "error", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	exec, err := executor.New(ws, store, executorOptions(opts))
	if err != nil {
		return err
	}

	start := time.Now()
	var totals buildTotals

	for _, name := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}

		if skip, reason := shouldSkip(exec.State(), ws, name, opts); skip {
			if !ws.Projects[name].Hidden() {
				fmt.Printf("== %s skipped (%s)\n", name, reason)
			}
			continue
		}

		result, err := exec.CompileProject(ctx, name)
		if err != nil {
			return err
		}

		totals.add(result)

		if !ws.Projects[name].Hidden() {
			printResult(result)
		}

		if !result.Success && opts.FailFast {
			break
		}
	}

	fmt.Println(totals.summary(time.Since(start)))

	if totals.failedProjects > 0 {
		return fmt.Errorf("build failed: %d project(s) with errors", totals.failedProjects)
	}

	return nil
}

// loadWorkspace resolves the workspace file from the --workspace flag or by
// walking up from the current directory.
func loadWorkspace(opts *config.Options) (*workspace.Workspace, error) {
	path := opts.Workspace

	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}

		path = workspace.Find(cwd)
		if path == "" {
			return nil, fmt.Errorf("no %s found in this directory or any parent", workspace.DefaultFile)
		}
	}

	return workspace.Load(path)
}

// selectProjects filters the build order down to the target project and its
// transitive dependencies. An empty target keeps the whole order.
func selectProjects(ws *workspace.Workspace, order []string, target string) ([]string, error) {
	if target == "" {
		return order, nil
	}

	if _, ok := ws.Projects[target]; !ok {
		return nil, fmt.Errorf("unknown project %q (valid: %s)",
			target, strings.Join(ws.ProjectNames(), ", "))
	}

	needed := map[string]bool{}
	var visit func(name string)
	visit = func(name string) {
		if needed[name] {
			return
		}

		needed[name] = true

		if p, ok := ws.Projects[name]; ok {
			for _, dep := range p.DependsOn {
				visit(dep)
			}
		}
	}
	visit(target)

	selected := make([]string, 0, len(needed))
	for _, name := range order {
		if needed[name] {
			selected = append(selected, name)
		}
	}

	return selected, nil
}

// shouldSkip reports whether a project can be bypassed this session: already
// built under the same (platform, arch), or blocked by a failed dependency.
func shouldSkip(state *executor.BuildState, ws *workspace.Workspace, name string, opts *config.Options) (bool, string) {
	if state.IsProjectCompiled(name, opts.Platform, opts.Arch) {
		return true, "already built"
	}

	for _, dep := range ws.Projects[name].DependsOn {
		if state.IsProjectFailed(dep, opts.Platform, opts.Arch) {
			return true, fmt.Sprintf("dependency %s failed", dep)
		}
	}

	return false, ""
}

func executorOptions(opts *config.Options) executor.Options {
	strategy := executor.Parallel
	if opts.Jobs == 1 {
		strategy = executor.Sequential
	}

	return executor.Options{
		Config:   opts.Config,
		Platform: opts.Platform,
		Arch:     opts.Arch,
		Jobs:     opts.Jobs,
		Strategy: strategy,
		NoCache:  opts.NoCache,
		Force:    opts.Force,
		FailFast: opts.FailFast,
	}
}

func printResult(r *executor.BuildResult) {
	status := "ok"
	if !r.Success {
		status = "FAILED"
	}

	fmt.Printf("== %s: %s (%d compiled, %d cached, %d failed, %d linked) in %s\n",
		r.Project, status, r.Compiled, r.Cached, r.Failed, r.Linked, r.Duration.Round(time.Millisecond))

	for _, d := range r.Diagnostics {
		fmt.Printf("-- %s\n%s\n", d.Source, strings.TrimRight(d.Output, "\n"))
	}
}

type buildTotals struct {
	compiled, cached, failed, linked int
	failedProjects                   int
}

func (t *buildTotals) add(r *executor.BuildResult) {
	t.compiled += r.Compiled
	t.cached += r.Cached
	t.failed += r.Failed
	t.linked += r.Linked

	if !r.Success {
		t.failedProjects++
	}
}

func (t *buildTotals) summary(elapsed time.Duration) string {
	return fmt.Sprintf("%d compiled, %d cached, %d failed, %d linked in %s",
		t.compiled, t.cached, t.failed, t.linked, elapsed.Round(time.Millisecond))
}

// visibleProjects returns the non-hidden subset of a build order.
func visibleProjects(ws *workspace.Workspace, order []string) []string {
	visible := make([]string, 0, len(order))

	for _, name := range order {
		if p, ok := ws.Projects[name]; ok && !p.Hidden() {
			visible = append(visible, name)
		}
	}

	return visible
}
