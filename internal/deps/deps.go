// Package deps discovers the header files a translation unit depends on.
//
// Two strategies: asking the compiler for its dependency listing
// (authoritative, handles macro-guarded includes) and a regex heuristic over
// the source text (used when the compiler can't be asked). Discover prefers
// the compiler and falls back to the heuristic.
package deps

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/RihenUniverse/jenga/internal/workspace"
)

// MaxHeaders caps heuristic recursion so pathological header webs cannot
// blow up discovery.
const MaxHeaders = 50

// readLimit bounds how much of each file the heuristic scanner reads.
const readLimit = 256 * 1024

var includeRe = regexp.MustCompile(`#include\s*["<]([^">]+)[">]`)

// Discoverer resolves header dependencies for source files of one project.
type Discoverer struct {
	IncludeDirs []string

	run func(ctx context.Context, exe string, args ...string) ([]byte, error)
}

func New(includeDirs []string) *Discoverer {
	return &Discoverer{
		IncludeDirs: includeDirs,
		run: func(ctx context.Context, exe string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, exe, args...).CombinedOutput()
		},
	}
}

// Discover returns the absolute paths of headers src depends on. The
// compiler-assisted path is tried first for known toolchain families; any
// failure there degrades to the heuristic scan rather than failing the
// build.
func (d *Discoverer) Discover(ctx context.Context, tc *workspace.Toolchain, src string, defines []string) ([]string, error) {
	compiler := tc.CompilerFor("C++")

	switch tc.Family {
	case workspace.FamilyGCCClang:
		out, err := d.run(ctx, compiler, gccDepsArgs(src, d.IncludeDirs, defines)...)
		if err == nil {
			return absolute(filepath.Dir(src), ParseMakeDeps(out)), nil
		}

		slog.Debug("compiler-assisted dependency scan failed, using heuristic",
			slog.String("source", src), slog.Any("error", err))
	case workspace.FamilyMSVC:
		// /Zs is a syntax-only pass; /showIncludes prints each header.
		out, err := d.run(ctx, compiler, msvcDepsArgs(src, d.IncludeDirs, defines)...)
		if err == nil {
			return absolute(filepath.Dir(src), ParseShowIncludes(out)), nil
		}

		slog.Debug("compiler-assisted dependency scan failed, using heuristic",
			slog.String("source", src), slog.Any("error", err))
	}

	return d.Scan(src)
}

func gccDepsArgs(src string, includeDirs, defines []string) []string {
	args := []string{"-MM", "-MG"}
	for _, dir := range includeDirs {
		args = append(args, "-I"+dir)
	}

	for _, def := range defines {
		args = append(args, "-D"+def)
	}

	return append(args, src)
}

func msvcDepsArgs(src string, includeDirs, defines []string) []string {
	args := []string{"/nologo", "/Zs", "/showIncludes"}
	for _, dir := range includeDirs {
		args = append(args, "/I"+dir)
	}

	for _, def := range defines {
		args = append(args, "/D"+def)
	}

	return append(args, src)
}

// ParseMakeDeps extracts prerequisite paths from Makefile-style dependency
// output (`foo.o: foo.c foo.h \` continuation lines). The object target and
// the source file itself are dropped.
func ParseMakeDeps(out []byte) []string {
	text := strings.ReplaceAll(string(out), "\\\r\n", " ")
	text = strings.ReplaceAll(text, "\\\n", " ")

	var headers []string
	for _, line := range strings.Split(text, "\n") {
		if i := targetColon(line); i >= 0 {
			line = line[i+1:]
		}

		for _, field := range splitDepFields(line) {
			if field == "" || isSourceFile(field) {
				continue
			}

			headers = append(headers, field)
		}
	}

	return dedupe(headers)
}

// targetColon locates the colon separating the make target from its
// prerequisites, skipping drive-letter colons (`C:\out\foo.o: ...`).
func targetColon(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] != ':' {
			continue
		}

		if i == 1 && len(line) > 2 && (line[2] == '/' || line[2] == '\\') {
			continue // drive letter
		}

		return i
	}

	return -1
}

// splitDepFields splits on whitespace but honors `\ `-escaped spaces in
// paths.
func splitDepFields(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	var fields []string
	var cur strings.Builder
	escaped := false

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ' ' || r == '\t':
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}

	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}

	return fields
}

// ParseShowIncludes extracts header paths from MSVC /showIncludes output
// ("Note: including file:   C:\inc\foo.h" lines, one per header).
func ParseShowIncludes(out []byte) []string {
	const marker = "including file:"

	var headers []string
	for _, line := range strings.Split(string(out), "\n") {
		i := strings.Index(line, marker)
		if i < 0 {
			continue
		}

		path := strings.TrimSpace(line[i+len(marker):])
		if path != "" {
			headers = append(headers, path)
		}
	}

	return dedupe(headers)
}

// Scan is the heuristic fallback: regex-match #include directives in the
// first chunk of the file, resolve them against the source's own directory
// then the include path, and recurse into found headers. Recursion is
// bounded by MaxHeaders distinct files, with an in-progress set for cycle
// protection.
func (d *Discoverer) Scan(src string) ([]string, error) {
	found := make(map[string]bool)
	visiting := make(map[string]bool)

	d.scanFile(src, found, visiting)

	headers := make([]string, 0, len(found))
	for h := range found {
		headers = append(headers, h)
	}

	sort.Strings(headers)
	return headers, nil
}

func (d *Discoverer) scanFile(path string, found, visiting map[string]bool) {
	if visiting[path] || len(found) >= MaxHeaders {
		return
	}

	visiting[path] = true
	defer delete(visiting, path)

	data, err := readHead(path)
	if err != nil {
		return
	}

	dir := filepath.Dir(path)
	for _, m := range includeRe.FindAllSubmatch(data, -1) {
		name := string(m[1])

		resolved := d.resolveInclude(dir, name)
		if resolved == "" || found[resolved] || visiting[resolved] {
			continue
		}

		if len(found) >= MaxHeaders {
			return
		}

		found[resolved] = true
		d.scanFile(resolved, found, visiting)
	}
}

func (d *Discoverer) resolveInclude(sourceDir, name string) string {
	candidates := append([]string{sourceDir}, d.IncludeDirs...)
	for _, dir := range candidates {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(path)
			if err == nil {
				return abs
			}

			return path
		}
	}

	// System headers (<stdio.h> etc) resolve nowhere locally; skip them.
	return ""
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, readLimit))
}

func absolute(baseDir string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}

		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}

		out = append(out, p)
	}

	sort.Strings(out)
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	return out
}

func isSourceFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".c", ".cc", ".cpp", ".cxx", ".m", ".mm", ".s", ".asm":
		return true
	default:
		return false
	}
}
