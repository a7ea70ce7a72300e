package cmd

import (
	"testing"
	"time"

	"github.com/RihenUniverse/jenga/internal/config"
	"github.com/RihenUniverse/jenga/internal/executor"
	"github.com/RihenUniverse/jenga/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWorkspace() *workspace.Workspace {
	return &workspace.Workspace{
		Name:     "demo",
		Location: "/tmp/demo",
		Projects: map[string]*workspace.Project{
			"core":        {Name: "core", Kind: workspace.StaticLib},
			"net":         {Name: "net", Kind: workspace.StaticLib, DependsOn: []string{"core"}},
			"app":         {Name: "app", Kind: workspace.ConsoleApp, DependsOn: []string{"net"}},
			"tool":        {Name: "tool", Kind: workspace.ConsoleApp, DependsOn: []string{"core"}},
			"__app_tests": {Name: "__app_tests", Kind: workspace.TestSuite, DependsOn: []string{"net"}},
		},
		Configurations: []string{"Debug"},
		Platforms:      []string{"linux"},
	}
}

func TestSelectProjectsWholeOrder(t *testing.T) {
	ws := testWorkspace()
	order := []string{"core", "net", "__app_tests", "app", "tool"}

	selected, err := selectProjects(ws, order, "")
	require.NoError(t, err)
	assert.Equal(t, order, selected)
}

func TestSelectProjectsTransitiveDeps(t *testing.T) {
	ws := testWorkspace()
	order := []string{"core", "net", "__app_tests", "app", "tool"}

	selected, err := selectProjects(ws, order, "app")
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "net", "app"}, selected, "target plus transitive deps, in order")

	selected, err = selectProjects(ws, order, "tool")
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "tool"}, selected)
}

func TestSelectProjectsUnknownTarget(t *testing.T) {
	ws := testWorkspace()

	_, err := selectProjects(ws, []string{"core"}, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown project "nope"`)
	assert.Contains(t, err.Error(), "app")
}

func TestVisibleProjectsHidesGenerated(t *testing.T) {
	ws := testWorkspace()
	order := []string{"core", "net", "__app_tests", "app", "tool"}

	assert.Equal(t, []string{"core", "net", "app", "tool"}, visibleProjects(ws, order))
}

func TestShouldSkip(t *testing.T) {
	ws := testWorkspace()
	state := executor.NewBuildState()
	opts := &config.Options{Platform: "linux"}

	skip, _ := shouldSkip(state, ws, "app", opts)
	assert.False(t, skip)

	state.MarkCompiled("app", opts.Platform, opts.Arch)
	skip, reason := shouldSkip(state, ws, "app", opts)
	assert.True(t, skip)
	assert.Equal(t, "already built", reason)

	state.Reset()
	state.MarkFailed("net", opts.Platform, opts.Arch)
	skip, reason = shouldSkip(state, ws, "app", opts)
	assert.True(t, skip)
	assert.Contains(t, reason, "dependency net failed")
}

func TestBuildTotals(t *testing.T) {
	var totals buildTotals

	totals.add(&executor.BuildResult{Success: true, Compiled: 3, Cached: 1, Linked: 1})
	totals.add(&executor.BuildResult{Success: false, Compiled: 1, Failed: 2})

	assert.Equal(t, 1, totals.failedProjects)
	assert.Equal(t, "4 compiled, 1 cached, 2 failed, 1 linked in 1s", totals.summary(time.Second))
}

func TestIgnoredPath(t *testing.T) {
	root := "/tmp/demo"

	assert.True(t, ignoredPath(root, "/tmp/demo/.jenga/cache.db"))
	assert.True(t, ignoredPath(root, "/tmp/demo/bin/Debug-linux/app"))
	assert.True(t, ignoredPath(root, "/tmp/demo/obj/Debug-linux/core/a.o"))
	assert.False(t, ignoredPath(root, "/tmp/demo/src/a.cpp"))
	assert.False(t, ignoredPath(root, root))
}

func TestDebouncedCoalesces(t *testing.T) {
	req, trigger := debounced(20 * time.Millisecond)

	for range 5 {
		trigger()
	}

	select {
	case <-req:
	case <-time.After(time.Second):
		t.Fatal("debounced request never fired")
	}

	select {
	case <-req:
		t.Fatal("burst produced more than one request")
	case <-time.After(60 * time.Millisecond):
	}
}
