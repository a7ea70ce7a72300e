package fingerprint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, Signature, s)

	s, err = ParseStrategy("content")
	require.NoError(t, err)
	assert.Equal(t, Content, s)

	_, err = ParseStrategy("sha1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature, content")
}

func TestFileSignature(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.c", "int main() {}")

	fp1, err := File(path, Signature)
	require.NoError(t, err)

	fp2, err := File(path, Signature)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)

	// Same size, new mtime: signature must change.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	fp3, err := File(path, Signature)
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp3)

	_, err = File(filepath.Join(dir, "missing.c"), Signature)
	require.Error(t, err)
}

func TestFileContent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.c", "int main() {}")

	fp1, err := File(path, Content)
	require.NoError(t, err)

	// Touching mtime alone must not change a content fingerprint.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	fp2, err := File(path, Content)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)

	require.NoError(t, os.WriteFile(path, []byte("int main() { return 1; }"), 0o644))

	fp3, err := File(path, Content)
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp3)
}

func TestOptionsHashOrderInsensitive(t *testing.T) {
	base := Options{
		Language:     "C++",
		Optimization: "speed",
		Defines:      []string{"NDEBUG", "CORE_STATIC"},
		IncludeDirs:  []string{"/a/include", "/b/include"},
		Config:       "Release",
		Platform:     "linux",
	}

	reordered := base
	reordered.Defines = []string{"CORE_STATIC", "NDEBUG"}
	reordered.IncludeDirs = []string{"/b/include", "/a/include"}

	assert.Equal(t, base.Hash(), reordered.Hash(),
		"list order alone must not change the options hash")
}

func TestOptionsHashChanges(t *testing.T) {
	base := Options{Language: "C++", Defines: []string{"NDEBUG"}, Config: "Release"}

	changedDefine := base
	changedDefine.Defines = []string{"NDEBUG", "TRACE"}
	assert.NotEqual(t, base.Hash(), changedDefine.Hash())

	changedConfig := base
	changedConfig.Config = "Debug"
	assert.NotEqual(t, base.Hash(), changedConfig.Hash())

	changedDebug := base
	changedDebug.DebugSymbols = true
	assert.NotEqual(t, base.Hash(), changedDebug.Hash())
}

func TestOptionsHashFieldBoundaries(t *testing.T) {
	a := Options{Language: "C", Dialect: "11"}
	b := Options{Language: "C1", Dialect: "1"}
	assert.NotEqual(t, a.Hash(), b.Hash(), "adjacent fields must not bleed into each other")
}

func TestCombine(t *testing.T) {
	a := Combine([]string{"x", "y", "z"})
	b := Combine([]string{"z", "y", "x"})
	assert.Equal(t, a, b, "combined fingerprint is a set identity")

	c := Combine([]string{"x", "y"})
	assert.NotEqual(t, a, c)
}
