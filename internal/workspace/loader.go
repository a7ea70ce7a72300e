package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the workspace file name looked for when none is given.
const DefaultFile = "jenga.yaml"

type workspaceFile struct {
	Workspace      string                   `yaml:"workspace"`
	Configurations []string                 `yaml:"configurations"`
	Platforms      []string                 `yaml:"platforms"`
	StartProject   string                   `yaml:"start_project"`
	Fingerprint    string                   `yaml:"fingerprint"`
	Toolchains     map[string]toolchainFile `yaml:"toolchains"`
	Projects       map[string]projectFile   `yaml:"projects"`
}

type toolchainFile struct {
	CC       string   `yaml:"cc"`
	CXX      string   `yaml:"cxx"`
	Archiver string   `yaml:"archiver"`
	Linker   string   `yaml:"linker"`
	Defines  []string `yaml:"defines"`
	Flags    []string `yaml:"flags"`
	Sysroot  string   `yaml:"sysroot"`
	Triple   string   `yaml:"triple"`
}

type projectFile struct {
	Kind          string   `yaml:"kind"`
	Language      string   `yaml:"language"`
	Dialect       string   `yaml:"dialect"`
	Sources       []string `yaml:"sources"`
	Excludes      []string `yaml:"excludes"`
	IncludeDirs   []string `yaml:"include_dirs"`
	LibDirs       []string `yaml:"lib_dirs"`
	Defines       []string `yaml:"defines"`
	Optimization  string   `yaml:"optimization"`
	DebugSymbols  bool     `yaml:"debug_symbols"`
	WarningLevel  string   `yaml:"warnings"`
	CompilerFlags []string `yaml:"compiler_flags"`
	LinkerFlags   []string `yaml:"linker_flags"`
	Links         []string `yaml:"links"`
	DependsOn     []string `yaml:"depends_on"`
	OutputDir     string   `yaml:"output_dir"`
	OutputName    string   `yaml:"output_name"`
	MainFiles     []string `yaml:"main_files"`
	PreBuild      []string `yaml:"pre_build"`
	PostBuild     []string `yaml:"post_build"`
	PreLink       []string `yaml:"pre_link"`
	PostLink      []string `yaml:"post_link"`
	Toolchain     string   `yaml:"toolchain"`
}

// Load reads a workspace file and returns the resolved graph. The loader is
// the only place that touches the file format; the core walks the returned
// structures.
func Load(path string) (*Workspace, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace path: %w", err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace file: %w", err)
	}

	var wf workspaceFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(abs), err)
	}

	ws := &Workspace{
		Name:           wf.Workspace,
		Location:       filepath.Dir(abs),
		Projects:       make(map[string]*Project, len(wf.Projects)),
		Toolchains:     make(map[string]*Toolchain, len(wf.Toolchains)),
		Configurations: wf.Configurations,
		Platforms:      wf.Platforms,
		StartProject:   wf.StartProject,
		Fingerprint:    wf.Fingerprint,
	}

	if ws.Name == "" {
		ws.Name = filepath.Base(ws.Location)
	}

	if len(ws.Configurations) == 0 {
		ws.Configurations = []string{"Debug", "Release"}
	}

	if len(ws.Platforms) == 0 {
		ws.Platforms = []string{hostPlatform()}
	}

	for name, tf := range wf.Toolchains {
		ws.Toolchains[name] = newToolchain(name, tf)
	}

	if _, ok := ws.Toolchains["default"]; !ok {
		ws.Toolchains["default"] = defaultToolchain()
	}

	for name, pf := range wf.Projects {
		ws.Projects[name] = newProject(name, pf)
	}

	if err := ws.Validate(); err != nil {
		return nil, err
	}

	return ws, nil
}

// Find walks up from dir looking for the workspace file, in the same way
// local config discovery walks up for .jenga.* files.
func Find(dir string) string {
	for {
		path := filepath.Join(dir, DefaultFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}

func hostPlatform() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	default:
		return runtime.GOOS
	}
}

func newToolchain(name string, tf toolchainFile) *Toolchain {
	tc := &Toolchain{
		Name:     name,
		CC:       tf.CC,
		CXX:      tf.CXX,
		Archiver: tf.Archiver,
		Linker:   tf.Linker,
		Defines:  tf.Defines,
		Flags:    tf.Flags,
		Sysroot:  tf.Sysroot,
		Triple:   tf.Triple,
	}

	if tc.CC == "" && tc.CXX != "" {
		tc.CC = tc.CXX
	}

	if tc.CXX == "" && tc.CC != "" {
		tc.CXX = tc.CC
	}

	// Family is decided once here, from the executable name.
	tc.Family = DetectFamily(tc.CompilerFor("C++"))

	if tc.Archiver == "" {
		if tc.Family == FamilyMSVC {
			tc.Archiver = "lib"
		} else {
			tc.Archiver = "ar"
		}
	}

	return tc
}

func defaultToolchain() *Toolchain {
	return newToolchain("default", toolchainFile{CC: "cc", CXX: "c++", Archiver: "ar"})
}

func newProject(name string, pf projectFile) *Project {
	kind := Kind(pf.Kind)
	if pf.Kind == "" {
		kind = ConsoleApp
	}

	language := pf.Language
	if language == "" {
		language = "C++"
	}

	return &Project{
		Name:          name,
		Kind:          kind,
		Language:      language,
		Dialect:       pf.Dialect,
		Sources:       pf.Sources,
		Excludes:      pf.Excludes,
		IncludeDirs:   pf.IncludeDirs,
		LibDirs:       pf.LibDirs,
		Defines:       pf.Defines,
		Optimization:  pf.Optimization,
		DebugSymbols:  pf.DebugSymbols,
		WarningLevel:  pf.WarningLevel,
		CompilerFlags: pf.CompilerFlags,
		LinkerFlags:   pf.LinkerFlags,
		Links:         pf.Links,
		DependsOn:     pf.DependsOn,
		OutputDir:     pf.OutputDir,
		OutputName:    pf.OutputName,
		MainFiles:     pf.MainFiles,
		PreBuild:      pf.PreBuild,
		PostBuild:     pf.PostBuild,
		PreLink:       pf.PreLink,
		PostLink:      pf.PostLink,
		Toolchain:     pf.Toolchain,
	}
}
