package cache

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFileStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)

	src := "/src/demo/core/a.cpp"

	got, err := s.GetFile(src)
	require.NoError(t, err)
	assert.Nil(t, got, "miss before first store")

	st := &FileState{
		Fingerprint: "fp1",
		OptionsHash: "opts1",
		Deps:        []string{"/src/demo/core/a.h"},
		DepFingerprints: map[string]string{
			"/src/demo/core/a.h": "hfp1",
		},
	}
	require.NoError(t, s.PutFile(src, st))

	got, err = s.GetFile(src)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fp1", got.Fingerprint)
	assert.Equal(t, "opts1", got.OptionsHash)
	assert.Equal(t, st.Deps, got.Deps)
	assert.Equal(t, st.DepFingerprints, got.DepFingerprints)
	assert.False(t, got.CheckedAt.IsZero())

	// Reload from disk reproduces an equivalent state.
	require.NoError(t, s.Close())
	s2 := openStore(t, dir)

	got, err = s2.GetFile(src)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fp1", got.Fingerprint)

	require.NoError(t, s2.DeleteFile(src))
	got, err = s2.GetFile(src)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLinkStateRoundTrip(t *testing.T) {
	s := openStore(t, t.TempDir())

	key := LinkKey("app", "Debug", "linux")
	require.NoError(t, s.PutLink(key, &LinkState{
		ObjectsFingerprint: "objs1",
		Libraries:          []string{"core", "m"},
		LibsFingerprint:    "libs1",
		Output:             "/out/app",
	}))

	got, err := s.GetLink(key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "objs1", got.ObjectsFingerprint)
	assert.Equal(t, []string{"core", "m"}, got.Libraries)

	// Distinct targets do not collide.
	other, err := s.GetLink(LinkKey("app", "Release", "linux"))
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestProjectStateAndDelete(t *testing.T) {
	s := openStore(t, t.TempDir())

	require.NoError(t, s.PutFile("/src/a.cpp", &FileState{Fingerprint: "x"}))
	require.NoError(t, s.PutProject("core", &ProjectState{
		Outputs: []string{"/out/a.o", "/out/libcore.a"},
		Sources: []string{"/src/a.cpp"},
	}))

	got, err := s.GetProject("core")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Outputs, 2)

	require.NoError(t, s.DeleteProject("core"))

	got, err = s.GetProject("core")
	require.NoError(t, err)
	assert.Nil(t, got)

	fs, err := s.GetFile("/src/a.cpp")
	require.NoError(t, err)
	assert.Nil(t, fs, "deleting a project clears entries for its sources")
}

func TestClearAndStats(t *testing.T) {
	s := openStore(t, t.TempDir())

	require.NoError(t, s.PutFile("/src/a.cpp", &FileState{Fingerprint: "x"}))
	require.NoError(t, s.PutProject("core", &ProjectState{}))
	require.NoError(t, s.PutLink(LinkKey("core", "Debug", "linux"), &LinkState{}))

	files, projects, links, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1}, []int{files, projects, links})

	require.NoError(t, s.Clear())

	files, projects, links, err = s.Stats()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, []int{files, projects, links})
}

func TestSchemaVersionBump(t *testing.T) {
	dir := t.TempDir()

	s := openStore(t, dir)
	require.NoError(t, s.PutFile("/src/a.cpp", &FileState{Fingerprint: "x"}))
	require.NoError(t, s.Close())

	// Rewrite the stored version tag to simulate an older schema.
	db, err := bbolt.Open(filepath.Join(dir, dbFile), 0o600, nil)
	require.NoError(t, err)
	old := make([]byte, 8)
	binary.BigEndian.PutUint64(old, SchemaVersion+100)
	require.NoError(t, db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(metaBucket)).Put([]byte(versionKey), old)
	}))
	require.NoError(t, db.Close())

	s2 := openStore(t, dir)
	got, err := s2.GetFile("/src/a.cpp")
	require.NoError(t, err)
	assert.Nil(t, got, "incompatible cache treated as absent")
}

func TestCorruptDatabaseStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, dbFile), []byte("not a bolt file"), 0o600))

	s, err := Open(dir)
	require.NoError(t, err, "corruption is recovered, never fatal")
	defer s.Close()

	got, err := s.GetFile("/src/a.cpp")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.PutFile("/src/a.cpp", &FileState{Fingerprint: "x"}))
}

func TestCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	require.NoError(t, s.Close())

	db, err := bbolt.Open(filepath.Join(dir, dbFile), 0o600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(filesBucket)).Put([]byte("/src/a.cpp"), []byte("{garbage"))
	}))
	require.NoError(t, db.Close())

	s2 := openStore(t, dir)
	got, err := s2.GetFile("/src/a.cpp")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".jenga")
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, dir, s.Dir())
}
