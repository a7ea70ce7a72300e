package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RihenUniverse/jenga/internal/workspace"
)

func gccToolchain() *workspace.Toolchain {
	return &workspace.Toolchain{Name: "gcc", CC: "gcc", CXX: "g++", Archiver: "ar", Family: workspace.FamilyGCCClang}
}

func msvcToolchain() *workspace.Toolchain {
	return &workspace.Toolchain{Name: "msvc", CC: "cl", CXX: "cl", Archiver: "lib", Family: workspace.FamilyMSVC}
}

func sampleResolution(kind workspace.Kind) *resolution {
	return &resolution{
		project: &workspace.Project{
			Name:         "core",
			Kind:         kind,
			Optimization: "speed",
			DebugSymbols: true,
			WarningLevel: "extra",
		},
		defines:     []string{"NDEBUG"},
		includeDirs: []string{"/src/include"},
		libDirs:     []string{"/src/libs"},
		extraLinks:  []string{"m"},
		outputDir:   "/out",
		outputPath:  "/out/core",
	}
}

func TestGCCCompileCommand(t *testing.T) {
	res := sampleResolution(workspace.ConsoleApp)
	cmd := compileCommand(gccToolchain(), "g++", res, "/src/a.cpp", "/obj/a.o")

	assert.Equal(t, "g++", cmd.Path)
	assert.Contains(t, cmd.Args, "-O2")
	assert.Contains(t, cmd.Args, "-g")
	assert.Contains(t, cmd.Args, "-Wall")
	assert.Contains(t, cmd.Args, "-DNDEBUG")
	assert.Contains(t, cmd.Args, "-I/src/include")

	last := cmd.Args[len(cmd.Args)-4:]
	assert.Equal(t, []string{"-c", "/src/a.cpp", "-o", "/obj/a.o"}, last)
}

func TestMSVCCompileCommand(t *testing.T) {
	res := sampleResolution(workspace.ConsoleApp)
	cmd := compileCommand(msvcToolchain(), "cl", res, `C:\src\a.cpp`, `C:\obj\a.obj`)

	assert.Equal(t, "cl", cmd.Path)
	assert.Contains(t, cmd.Args, "/nologo")
	assert.Contains(t, cmd.Args, "/O2")
	assert.Contains(t, cmd.Args, "/Zi")
	assert.Contains(t, cmd.Args, "/W4")
	assert.Contains(t, cmd.Args, "/DNDEBUG")
	assert.Contains(t, cmd.Args, "/I/src/include")
	assert.Contains(t, cmd.Args, "/c")
	assert.Contains(t, cmd.Args, `/Fo:C:\obj\a.obj`)
}

func TestDialectFlag(t *testing.T) {
	res := sampleResolution(workspace.ConsoleApp)
	res.project.Dialect = "c++17"

	cmd := compileCommand(gccToolchain(), "g++", res, "/src/a.cpp", "/obj/a.o")
	assert.Contains(t, cmd.Args, "-std=c++17")

	cmd = compileCommand(msvcToolchain(), "cl", res, `C:\src\a.cpp`, `C:\obj\a.obj`)
	assert.Contains(t, cmd.Args, "/std:c++17")

	res.project.Dialect = ""
	cmd = compileCommand(gccToolchain(), "g++", res, "/src/a.cpp", "/obj/a.o")
	for _, a := range cmd.Args {
		assert.NotContains(t, a, "-std=")
	}
}

func TestSharedLibCompileGetsPIC(t *testing.T) {
	res := sampleResolution(workspace.SharedLib)
	cmd := compileCommand(gccToolchain(), "g++", res, "/src/a.cpp", "/obj/a.o")
	assert.Contains(t, cmd.Args, "-fPIC")
}

func TestArchiveCommands(t *testing.T) {
	res := sampleResolution(workspace.StaticLib)
	objs := []string{"/obj/a.o", "/obj/b.o"}

	cmd := linkCommand(gccToolchain(), "g++", res, objs)
	assert.Equal(t, "ar", cmd.Path)
	assert.Equal(t, []string{"rcs", "/out/core", "/obj/a.o", "/obj/b.o"}, cmd.Args)

	cmd = linkCommand(msvcToolchain(), "cl", res, objs)
	assert.Equal(t, "lib", cmd.Path)
	assert.Contains(t, cmd.Args, "/OUT:/out/core")
}

func TestLinkCommands(t *testing.T) {
	res := sampleResolution(workspace.ConsoleApp)
	res.libFiles = []string{"/out/libdep.a"}
	objs := []string{"/obj/a.o"}

	cmd := linkCommand(gccToolchain(), "g++", res, objs)
	assert.Equal(t, "g++", cmd.Path)
	assert.Contains(t, cmd.Args, "/out/libdep.a")
	assert.Contains(t, cmd.Args, "-L/src/libs")
	assert.Contains(t, cmd.Args, "-lm")

	cmd = linkCommand(msvcToolchain(), "cl", res, objs)
	assert.Equal(t, "link", cmd.Path)
	assert.Contains(t, cmd.Args, "/LIBPATH:/src/libs")
	assert.Contains(t, cmd.Args, "m.lib")

	shared := sampleResolution(workspace.SharedLib)
	cmd = linkCommand(gccToolchain(), "g++", shared, objs)
	assert.Contains(t, cmd.Args, "-shared")

	cmd = linkCommand(msvcToolchain(), "cl", shared, objs)
	assert.Contains(t, cmd.Args, "/DLL")
}

func TestCrossCompilerFlags(t *testing.T) {
	tc := &workspace.Toolchain{
		Name:    "cross",
		CC:      "clang",
		CXX:     "clang++",
		Family:  workspace.FamilyGCCClang,
		Sysroot: "/opt/sysroot",
		Triple:  "aarch64-linux-gnu",
	}

	res := sampleResolution(workspace.ConsoleApp)
	cmd := compileCommand(tc, "clang++", res, "/src/a.cpp", "/obj/a.o")

	assert.Contains(t, cmd.Args, "--sysroot=/opt/sysroot")
	assert.Contains(t, cmd.Args, "-target")
	assert.Contains(t, cmd.Args, "aarch64-linux-gnu")
}
