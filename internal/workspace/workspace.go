package workspace

import (
	"fmt"
	"sort"
	"strings"
)

// Workspace is the top-level container of projects, toolchains and the valid
// configuration/platform names.
type Workspace struct {
	Name     string
	Location string // absolute root directory

	Projects   map[string]*Project
	Toolchains map[string]*Toolchain

	Configurations []string
	Platforms      []string

	StartProject string

	// Fingerprint selects the change-detection strategy: "signature"
	// (mtime+size, the default) or "content" (full-byte hash).
	Fingerprint string
}

// Validate checks cross-references a build run depends on: project kinds,
// toolchain references and dependency names. Dangling dependsOn entries are
// reported by the scheduler as warnings, not here, so a workspace with an
// optional project removed still loads.
func (w *Workspace) Validate() error {
	if len(w.Configurations) == 0 {
		return fmt.Errorf("workspace %s declares no configurations", w.Name)
	}

	if len(w.Platforms) == 0 {
		return fmt.Errorf("workspace %s declares no platforms", w.Name)
	}

	for _, p := range w.Projects {
		if err := p.Validate(); err != nil {
			return err
		}

		if p.Toolchain != "" {
			if _, ok := w.Toolchains[p.Toolchain]; !ok {
				return fmt.Errorf("project %s references unknown toolchain %q (valid: %s)",
					p.Name, p.Toolchain, strings.Join(w.toolchainNames(), ", "))
			}
		}
	}

	if w.StartProject != "" {
		if _, ok := w.Projects[w.StartProject]; !ok {
			return fmt.Errorf("start project %q not found (valid: %s)",
				w.StartProject, strings.Join(w.ProjectNames(), ", "))
		}
	}

	return nil
}

// HasConfiguration reports whether name is a declared configuration.
func (w *Workspace) HasConfiguration(name string) bool {
	return contains(w.Configurations, name)
}

// HasPlatform reports whether name is a declared platform.
func (w *Workspace) HasPlatform(name string) bool {
	return contains(w.Platforms, name)
}

// ToolchainFor resolves a project's toolchain, falling back to the
// workspace default.
func (w *Workspace) ToolchainFor(p *Project) (*Toolchain, error) {
	name := p.Toolchain
	if name == "" {
		name = "default"
	}

	tc, ok := w.Toolchains[name]
	if !ok {
		return nil, fmt.Errorf("project %s: toolchain %q not found (valid: %s)",
			p.Name, name, strings.Join(w.toolchainNames(), ", "))
	}

	return tc, nil
}

// ProjectNames returns all project names sorted lexicographically.
func (w *Workspace) ProjectNames() []string {
	names := make([]string, 0, len(w.Projects))
	for name := range w.Projects {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

func (w *Workspace) toolchainNames() []string {
	names := make([]string, 0, len(w.Toolchains))
	for name := range w.Toolchains {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}

	return false
}
