// Package graph computes the dependency-respecting project build order.
package graph

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/RihenUniverse/jenga/internal/workspace"
)

// CycleError reports a circular dependsOn chain. Blocked maps every project
// that never became ready to the dependencies still unresolved for it, so
// the whole cycle is visible, not just one edge.
type CycleError struct {
	Blocked map[string][]string
}

func (e *CycleError) Error() string {
	names := make([]string, 0, len(e.Blocked))
	for name := range e.Blocked {
		names = append(names, name)
	}

	sort.Strings(names)

	var b strings.Builder
	b.WriteString("dependency cycle detected:")
	for _, name := range names {
		fmt.Fprintf(&b, "\n  %s waits on %s", name, strings.Join(e.Blocked[name], ", "))
	}

	return b.String()
}

// ComputeBuildOrder topologically sorts the projects by their dependsOn
// edges using Kahn's algorithm. The ready set is drained in lexicographic
// name order, so the result is deterministic for a fixed graph regardless
// of map iteration order. Dependency references to projects that do not
// exist are dropped with a warning rather than failing the build.
func ComputeBuildOrder(projects map[string]*workspace.Project) ([]string, error) {
	indegree := make(map[string]int, len(projects))
	dependents := make(map[string][]string, len(projects))

	for name, p := range projects {
		if _, ok := indegree[name]; !ok {
			indegree[name] = 0
		}

		for _, dep := range p.DependsOn {
			if _, ok := projects[dep]; !ok {
				slog.Warn("ignoring unknown dependency",
					slog.String("project", name),
					slog.String("dependency", dep))
				continue
			}

			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	ready := make([]string, 0, len(projects))
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(projects))
	for len(ready) > 0 {
		sort.Strings(ready)

		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) < len(projects) {
		return nil, cycleError(projects, order)
	}

	return order, nil
}

func cycleError(projects map[string]*workspace.Project, order []string) *CycleError {
	resolved := make(map[string]bool, len(order))
	for _, name := range order {
		resolved[name] = true
	}

	blocked := make(map[string][]string)
	for name, p := range projects {
		if resolved[name] {
			continue
		}

		var unresolved []string
		for _, dep := range p.DependsOn {
			if _, ok := projects[dep]; ok && !resolved[dep] {
				unresolved = append(unresolved, dep)
			}
		}

		sort.Strings(unresolved)
		blocked[name] = unresolved
	}

	return &CycleError{Blocked: blocked}
}
