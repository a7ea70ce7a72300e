package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildStateContextScoping(t *testing.T) {
	s := NewBuildState()
	assert.NotEmpty(t, s.SessionID)

	s.MarkCompiled("core", "android", "arm64")

	assert.True(t, s.IsProjectCompiled("core", "android", "arm64"))
	assert.False(t, s.IsProjectCompiled("core", "android", "x86_64"),
		"arm64 state must not answer an x86_64 query")
	assert.False(t, s.IsProjectCompiled("core", "linux", ""))
	assert.False(t, s.IsProjectCompiled("core", "", ""))
}

func TestBuildStateGlobalContext(t *testing.T) {
	s := NewBuildState()

	s.MarkCompiled("core", "", "")
	assert.True(t, s.IsProjectCompiled("core", "", ""))
	assert.False(t, s.IsProjectCompiled("core", "android", "arm64"))
}

func TestBuildStateFailedAndReset(t *testing.T) {
	s := NewBuildState()

	s.MarkFailed("app", "linux", "")
	assert.True(t, s.IsProjectFailed("app", "linux", ""))
	assert.False(t, s.IsProjectFailed("app", "windows", ""))

	s.Reset()
	assert.False(t, s.IsProjectFailed("app", "linux", ""))
}
