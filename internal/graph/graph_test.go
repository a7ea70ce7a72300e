package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RihenUniverse/jenga/internal/workspace"
)

func projects(deps map[string][]string) map[string]*workspace.Project {
	out := make(map[string]*workspace.Project, len(deps))
	for name, d := range deps {
		out[name] = &workspace.Project{Name: name, Kind: workspace.StaticLib, DependsOn: d}
	}

	return out
}

func TestComputeBuildOrder(t *testing.T) {
	tests := []struct {
		name string
		deps map[string][]string
		want []string
	}{
		{
			name: "single project",
			deps: map[string][]string{"app": nil},
			want: []string{"app"},
		},
		{
			name: "dependency first",
			deps: map[string][]string{
				"app":  {"core"},
				"core": nil,
			},
			want: []string{"core", "app"},
		},
		{
			name: "diamond",
			deps: map[string][]string{
				"app":  {"net", "ui"},
				"net":  {"core"},
				"ui":   {"core"},
				"core": nil,
			},
			want: []string{"core", "net", "ui", "app"},
		},
		{
			name: "independent projects sort lexicographically",
			deps: map[string][]string{
				"zeta":  nil,
				"alpha": nil,
				"mid":   nil,
			},
			want: []string{"alpha", "mid", "zeta"},
		},
		{
			name: "hidden projects participate in ordering",
			deps: map[string][]string{
				"__core_tests": {"core"},
				"core":         nil,
			},
			want: []string{"core", "__core_tests"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeBuildOrder(projects(tt.deps))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeBuildOrderDeterminism(t *testing.T) {
	deps := map[string][]string{
		"app": {"a", "b", "c"},
		"a":   nil, "b": nil, "c": nil,
		"z": nil, "y": nil, "x": nil,
	}

	first, err := ComputeBuildOrder(projects(deps))
	require.NoError(t, err)

	for range 50 {
		got, err := ComputeBuildOrder(projects(deps))
		require.NoError(t, err)
		require.Equal(t, first, got)
	}
}

func TestComputeBuildOrderDanglingDependency(t *testing.T) {
	got, err := ComputeBuildOrder(projects(map[string][]string{
		"app": {"vendored_lib"}, // not part of the workspace
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"app"}, got)
}

func TestComputeBuildOrderCycle(t *testing.T) {
	_, err := ComputeBuildOrder(projects(map[string][]string{
		"a": {"b"},
		"b": {"a"},
		"c": nil,
	}))
	require.Error(t, err)

	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)

	assert.Equal(t, map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}, cycle.Blocked, "every blocked project reported, not just one edge")

	assert.Contains(t, cycle.Error(), "a waits on b")
	assert.Contains(t, cycle.Error(), "b waits on a")
}

func TestComputeBuildOrderSelfCycle(t *testing.T) {
	_, err := ComputeBuildOrder(projects(map[string][]string{
		"a": {"a"},
	}))

	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"a"}, cycle.Blocked["a"])
}
