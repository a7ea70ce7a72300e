// Package workspace holds the resolved build graph: projects, toolchains and
// the valid configuration/platform names. The configuration file format is
// thin glue; everything downstream only walks these structures.
package workspace

import (
	"fmt"
	"strings"
)

// Kind determines how a project is linked and how its output file is named.
type Kind string

const (
	ConsoleApp  Kind = "ConsoleApp"
	WindowedApp Kind = "WindowedApp"
	StaticLib   Kind = "StaticLib"
	SharedLib   Kind = "SharedLib"
	TestSuite   Kind = "TestSuite"
)

// HiddenPrefix marks auto-generated projects (e.g. test harnesses) that build
// normally but are suppressed from user-facing progress output.
const HiddenPrefix = "__"

var validKinds = map[Kind]bool{
	ConsoleApp:  true,
	WindowedApp: true,
	StaticLib:   true,
	SharedLib:   true,
	TestSuite:   true,
}

// Project is one buildable target.
type Project struct {
	Name     string
	Kind     Kind
	Language string // "C" or "C++"
	Dialect  string // language standard, e.g. "c++17" or "c11"; empty uses the compiler default

	Sources  []string // glob patterns, workspace-root relative
	Excludes []string // glob patterns removed from the source set

	IncludeDirs []string
	LibDirs     []string
	Defines     []string

	Optimization string // none, size, speed, full
	DebugSymbols bool
	WarningLevel string // off, default, extra

	CompilerFlags []string
	LinkerFlags   []string

	Links     []string // library names or project names
	DependsOn []string // ordering edges; dependencies build first

	OutputDir  string
	OutputName string // defaults to project name

	// MainFiles are the entry-point sources excluded when a TestSuite
	// dependent compiles this project's tree, so test binaries don't
	// double-define main.
	MainFiles []string

	PreBuild  []string
	PostBuild []string
	PreLink   []string
	PostLink  []string

	Toolchain string // toolchain name override, empty for workspace default
}

// Hidden reports whether the project is suppressed from progress output.
func (p *Project) Hidden() bool {
	return strings.HasPrefix(p.Name, HiddenPrefix)
}

// Validate checks the fields a build run depends on.
func (p *Project) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("project has no name")
	}

	if !validKinds[p.Kind] {
		return fmt.Errorf("project %s: unknown kind %q (valid: ConsoleApp, WindowedApp, StaticLib, SharedLib, TestSuite)", p.Name, p.Kind)
	}

	return nil
}

// OutputBase returns the output file name without directory for the given
// platform, applying the platform's conventional prefix and extension.
func (p *Project) OutputBase(platform string) string {
	name := p.OutputName
	if name == "" {
		name = p.Name
	}

	windows := isWindows(platform)
	darwin := isDarwin(platform)

	switch p.Kind {
	case StaticLib:
		if windows {
			return name + ".lib"
		}

		return "lib" + name + ".a"
	case SharedLib:
		if windows {
			return name + ".dll"
		}

		if darwin {
			return "lib" + name + ".dylib"
		}

		return "lib" + name + ".so"
	default:
		if windows {
			return name + ".exe"
		}

		return name
	}
}

func isWindows(platform string) bool {
	p := strings.ToLower(platform)
	// "darwin" also contains "win".
	return !isDarwin(p) && strings.Contains(p, "win")
}

func isDarwin(platform string) bool {
	p := strings.ToLower(platform)
	return strings.Contains(p, "mac") || strings.Contains(p, "darwin") || strings.Contains(p, "ios")
}
