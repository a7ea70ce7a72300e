package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResolveSources expands a project's source patterns relative to root, drops
// anything matched by an exclude pattern, and returns a sorted list of
// absolute paths. Patterns support the usual glob metacharacters plus "**"
// for recursive directory matching.
func ResolveSources(root string, patterns, excludes []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	for _, pattern := range patterns {
		matches, err := expandPattern(root, pattern)
		if err != nil {
			return nil, fmt.Errorf("bad source pattern %q: %w", pattern, err)
		}

		for _, m := range matches {
			rel, err := filepath.Rel(root, m)
			if err != nil {
				rel = m
			}

			if matchesAny(rel, excludes) {
				continue
			}

			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}

	sort.Strings(out)
	return out, nil
}

// MatchesAny reports whether the root-relative path matches any pattern.
func MatchesAny(rel string, patterns []string) bool {
	return matchesAny(rel, patterns)
}

func expandPattern(root, pattern string) ([]string, error) {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(root, pattern)
	}

	if !strings.Contains(pattern, "**") {
		return filepath.Glob(pattern)
	}

	// Recursive pattern: walk from the longest literal prefix.
	base := pattern
	if i := strings.Index(base, "**"); i >= 0 {
		base = filepath.Dir(base[:i] + "x")
	}

	var matches []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		if d.IsDir() {
			return nil
		}

		if matchPattern(pattern, path) {
			matches = append(matches, path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return matches, nil
}

func matchesAny(rel string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range patterns {
		if matchPattern(pattern, rel) {
			return true
		}
	}

	return false
}

// matchPattern matches path against a glob pattern where "**" crosses
// directory separators and "*" stays within one path segment.
func matchPattern(pattern, path string) bool {
	return matchSegments(splitSlash(pattern), splitSlash(path))
}

func matchSegments(pattern, path []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case "**":
			if len(pattern) == 1 {
				return true
			}

			for i := 0; i <= len(path); i++ {
				if matchSegments(pattern[1:], path[i:]) {
					return true
				}
			}

			return false
		default:
			if len(path) == 0 {
				return false
			}

			ok, err := filepath.Match(pattern[0], path[0])
			if err != nil || !ok {
				return false
			}

			pattern = pattern[1:]
			path = path[1:]
		}
	}

	return len(path) == 0
}

func splitSlash(s string) []string {
	s = filepath.ToSlash(s)
	s = strings.TrimPrefix(s, "/")
	if s == "" {
		return nil
	}

	return strings.Split(s, "/")
}
