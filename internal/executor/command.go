package executor

import (
	"path/filepath"
	"strings"

	"github.com/RihenUniverse/jenga/internal/workspace"
)

// ShellCommand is one ready-to-run subprocess invocation.
type ShellCommand struct {
	Path string
	Args []string
}

// compileCommand assembles the compiler invocation for one translation
// unit. The toolchain family decided at load time selects the flag dialect;
// the host platform plays no part.
func compileCommand(tc *workspace.Toolchain, compiler string, res *resolution, src, obj string) ShellCommand {
	if tc.Family == workspace.FamilyMSVC {
		return msvcCompile(tc, compiler, res, src, obj)
	}

	return gccCompile(tc, compiler, res, src, obj)
}

func gccCompile(tc *workspace.Toolchain, compiler string, res *resolution, src, obj string) ShellCommand {
	var args []string

	if tc.Sysroot != "" {
		args = append(args, "--sysroot="+tc.Sysroot)
	}

	if tc.Triple != "" && strings.Contains(filepath.Base(compiler), "clang") {
		args = append(args, "-target", tc.Triple)
	}

	args = append(args, tc.Flags...)

	if res.project.Dialect != "" {
		args = append(args, "-std="+res.project.Dialect)
	}

	switch res.project.Optimization {
	case "size":
		args = append(args, "-Os")
	case "speed":
		args = append(args, "-O2")
	case "full":
		args = append(args, "-O3")
	case "none":
		args = append(args, "-O0")
	}

	if res.project.DebugSymbols {
		args = append(args, "-g")
	}

	switch res.project.WarningLevel {
	case "off":
		args = append(args, "-w")
	case "extra":
		args = append(args, "-Wall", "-Wextra")
	}

	if res.project.Kind == workspace.SharedLib {
		args = append(args, "-fPIC")
	}

	for _, def := range res.defines {
		args = append(args, "-D"+def)
	}

	for _, dir := range res.includeDirs {
		args = append(args, "-I"+dir)
	}

	args = append(args, res.project.CompilerFlags...)
	args = append(args, "-c", src, "-o", obj)

	return ShellCommand{Path: compiler, Args: args}
}

func msvcCompile(tc *workspace.Toolchain, compiler string, res *resolution, src, obj string) ShellCommand {
	args := []string{"/nologo"}
	args = append(args, tc.Flags...)

	if res.project.Dialect != "" {
		args = append(args, "/std:"+res.project.Dialect)
	}

	switch res.project.Optimization {
	case "size":
		args = append(args, "/O1")
	case "speed":
		args = append(args, "/O2")
	case "full":
		args = append(args, "/Ox")
	case "none":
		args = append(args, "/Od")
	}

	if res.project.DebugSymbols {
		args = append(args, "/Zi")
	}

	switch res.project.WarningLevel {
	case "off":
		args = append(args, "/w")
	case "extra":
		args = append(args, "/W4")
	}

	for _, def := range res.defines {
		args = append(args, "/D"+def)
	}

	for _, dir := range res.includeDirs {
		args = append(args, "/I"+dir)
	}

	args = append(args, res.project.CompilerFlags...)
	args = append(args, "/c", src, "/Fo:"+obj)

	return ShellCommand{Path: compiler, Args: args}
}

// linkCommand assembles the link or archive step for the whole project.
func linkCommand(tc *workspace.Toolchain, compiler string, res *resolution, objects []string) ShellCommand {
	if res.project.Kind == workspace.StaticLib {
		return archiveCommand(tc, res, objects)
	}

	if tc.Family == workspace.FamilyMSVC {
		return msvcLink(tc, res, objects)
	}

	return gccLink(tc, compiler, res, objects)
}

func archiveCommand(tc *workspace.Toolchain, res *resolution, objects []string) ShellCommand {
	if tc.Family == workspace.FamilyMSVC {
		args := []string{"/NOLOGO", "/OUT:" + res.outputPath}
		args = append(args, objects...)
		return ShellCommand{Path: tc.Archiver, Args: args}
	}

	args := []string{"rcs", res.outputPath}
	args = append(args, objects...)
	return ShellCommand{Path: tc.Archiver, Args: args}
}

func gccLink(tc *workspace.Toolchain, compiler string, res *resolution, objects []string) ShellCommand {
	linker := compiler
	if tc.Linker != "" {
		linker = tc.Linker
	}

	var args []string
	if tc.Sysroot != "" {
		args = append(args, "--sysroot="+tc.Sysroot)
	}

	if res.project.Kind == workspace.SharedLib {
		args = append(args, "-shared")
	}

	args = append(args, "-o", res.outputPath)
	args = append(args, objects...)

	// Dependency project outputs link by path; plain library names go
	// through -l.
	args = append(args, res.libFiles...)

	for _, dir := range res.libDirs {
		args = append(args, "-L"+dir)
	}

	for _, lib := range res.extraLinks {
		args = append(args, "-l"+lib)
	}

	args = append(args, res.project.LinkerFlags...)

	return ShellCommand{Path: linker, Args: args}
}

func msvcLink(tc *workspace.Toolchain, res *resolution, objects []string) ShellCommand {
	linker := tc.Linker
	if linker == "" {
		linker = "link"
	}

	args := []string{"/NOLOGO", "/OUT:" + res.outputPath}
	if res.project.Kind == workspace.SharedLib {
		args = append(args, "/DLL")
	}

	if res.project.DebugSymbols {
		args = append(args, "/DEBUG")
	}

	args = append(args, objects...)
	args = append(args, res.libFiles...)

	for _, dir := range res.libDirs {
		args = append(args, "/LIBPATH:"+dir)
	}

	for _, lib := range res.extraLinks {
		if filepath.Ext(lib) == "" {
			lib += ".lib"
		}

		args = append(args, lib)
	}

	args = append(args, res.project.LinkerFlags...)

	return ShellCommand{Path: linker, Args: args}
}
