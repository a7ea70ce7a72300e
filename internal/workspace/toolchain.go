package workspace

import (
	"path/filepath"
	"strings"
)

// Family selects which flag dialect a toolchain speaks. It is detected once
// when the toolchain is loaded, never re-derived at command-construction
// sites.
type Family int

const (
	FamilyOther Family = iota
	FamilyGCCClang
	FamilyMSVC
)

func (f Family) String() string {
	switch f {
	case FamilyGCCClang:
		return "gcc"
	case FamilyMSVC:
		return "msvc"
	default:
		return "other"
	}
}

// Toolchain is the set of executables and default flags used to build a
// project. Immutable once loaded for a build run.
type Toolchain struct {
	Name string

	CC       string // C compiler
	CXX      string // C++ compiler
	Archiver string // static library archiver (ar / lib.exe)
	Linker   string // empty means link through the compiler driver

	Family Family

	Defines []string
	Flags   []string

	Sysroot string
	Triple  string // target triple for cross-compilation
}

// CompilerFor picks the C or C++ compiler based on the project language.
func (t *Toolchain) CompilerFor(language string) string {
	if strings.EqualFold(language, "c") && t.CC != "" {
		return t.CC
	}

	if t.CXX != "" {
		return t.CXX
	}

	return t.CC
}

// DetectFamily classifies a compiler executable by its name. The executable
// name decides the dialect, not the host platform: a GCC-style
// cross-compiler on a Windows host still gets GCC-style flags.
func DetectFamily(compiler string) Family {
	base := strings.ToLower(filepath.Base(compiler))
	base = strings.TrimSuffix(base, ".exe")

	switch {
	case base == "cl" || base == "clang-cl":
		return FamilyMSVC
	case strings.HasSuffix(base, "gcc"), strings.HasSuffix(base, "g++"),
		strings.HasSuffix(base, "clang"), strings.HasSuffix(base, "clang++"),
		base == "cc", base == "c++", strings.HasSuffix(base, "-cc"), strings.HasSuffix(base, "-c++"):
		return FamilyGCCClang
	default:
		return FamilyOther
	}
}
