// Package vars resolves %{namespace.field} placeholders in paths, flags and
// command lines before they reach the executor.
package vars

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var placeholder = regexp.MustCompile(`%\{([A-Za-z_][A-Za-z0-9_]*\.[A-Za-z_][A-Za-z0-9_]*)\}`)

// maxDepth bounds repeated expansion so self-referential values cannot loop.
const maxDepth = 8

// Context holds the variables available for expansion during one build.
type Context struct {
	values map[string]string
}

func NewContext() *Context {
	return &Context{values: make(map[string]string)}
}

// Set registers a value under namespace.field.
func (c *Context) Set(namespace, field, value string) {
	c.values[namespace+"."+field] = value
}

// Lookup returns the value for namespace.field, if set.
func (c *Context) Lookup(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Expand replaces every %{namespace.field} placeholder in s. Expansion is
// applied repeatedly so values may themselves contain placeholders. An
// unknown placeholder is a configuration error, reported with the list of
// known variables.
func (c *Context) Expand(s string) (string, error) {
	for range maxDepth {
		if !placeholder.MatchString(s) {
			return s, nil
		}

		var missing string
		out := placeholder.ReplaceAllStringFunc(s, func(m string) string {
			key := m[2 : len(m)-1]
			if v, ok := c.values[key]; ok {
				return v
			}
			if missing == "" {
				missing = key
			}
			return m
		})

		if missing != "" {
			return "", fmt.Errorf("unknown variable %%{%s} (known: %s)", missing, strings.Join(c.keys(), ", "))
		}

		s = out
	}

	return "", fmt.Errorf("variable expansion exceeded %d levels in %q", maxDepth, s)
}

// ExpandAll expands every string in the slice, returning a new slice.
func (c *Context) ExpandAll(in []string) ([]string, error) {
	if len(in) == 0 {
		return nil, nil
	}

	out := make([]string, len(in))
	for i, s := range in {
		expanded, err := c.Expand(s)
		if err != nil {
			return nil, err
		}

		out[i] = expanded
	}

	return out, nil
}

func (c *Context) keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys
}
