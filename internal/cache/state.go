package cache

import (
	"time"
)

// FileState is the persisted record for one source file. Created on first
// successful compilation, updated after every recompilation.
type FileState struct {
	// Fingerprint of the source file at last successful compile.
	Fingerprint string `json:"fingerprint"`

	// OptionsHash is the project-wide compile-options hash the file was
	// built under.
	OptionsHash string `json:"options_hash"`

	// Deps are the discovered header dependencies, absolute paths.
	Deps []string `json:"deps,omitempty"`

	// DepFingerprints maps each dependency to its fingerprint at compile
	// time.
	DepFingerprints map[string]string `json:"dep_fingerprints,omitempty"`

	// CheckedAt is when this entry was last written.
	CheckedAt time.Time `json:"checked_at"`
}

// LinkState records the inputs of the last successful link of one
// (project, config, platform) target.
type LinkState struct {
	// ObjectsFingerprint is the combined fingerprint of the object-file
	// set.
	ObjectsFingerprint string `json:"objects_fingerprint"`

	// Libraries is the sorted resolved library identity set. Sorting makes
	// the comparison order-insensitive: reordering semantically identical
	// libraries never forces a relink.
	Libraries []string `json:"libraries,omitempty"`

	// LibsFingerprint combines the fingerprints of linked library files
	// that exist on disk, so a rebuilt dependency output forces dependents
	// to relink.
	LibsFingerprint string `json:"libs_fingerprint"`

	// Output is the produced binary/archive.
	Output string `json:"output"`

	LinkedAt time.Time `json:"linked_at"`
}

// ProjectState records what a project produced and depends on, so Clean can
// remove exactly those files.
type ProjectState struct {
	// Outputs are every file the last build produced: objects, the linked
	// output, copied runtime dependencies. Absolute paths.
	Outputs []string `json:"outputs,omitempty"`

	// Sources are the project's resolved source files at last build.
	Sources []string `json:"sources,omitempty"`

	// Deps is the union of discovered header dependencies.
	Deps []string `json:"deps,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// GetFile returns the state for a source file, or nil on cache miss.
func (s *Store) GetFile(path string) (*FileState, error) {
	var st FileState
	found, err := s.get(filesBucket, path, &st)
	if err != nil || !found {
		return nil, err
	}

	return &st, nil
}

// PutFile stores the state for a source file, keyed by absolute path.
func (s *Store) PutFile(path string, st *FileState) error {
	st.CheckedAt = time.Now()
	return s.put(filesBucket, path, st)
}

// DeleteFile removes a source file's entry.
func (s *Store) DeleteFile(path string) error {
	return s.delete(filesBucket, path)
}

// LinkKey builds the link-cache key for one target.
func LinkKey(project, config, platform string) string {
	return project + "|" + config + "|" + platform
}

// GetLink returns the last successful link record, or nil on miss.
func (s *Store) GetLink(key string) (*LinkState, error) {
	var st LinkState
	found, err := s.get(linkBucket, key, &st)
	if err != nil || !found {
		return nil, err
	}

	return &st, nil
}

// PutLink stores a link record.
func (s *Store) PutLink(key string, st *LinkState) error {
	st.LinkedAt = time.Now()
	return s.put(linkBucket, key, st)
}

// DeleteLink removes a link record.
func (s *Store) DeleteLink(key string) error {
	return s.delete(linkBucket, key)
}

// GetProject returns a project's output manifest, or nil on miss.
func (s *Store) GetProject(name string) (*ProjectState, error) {
	var st ProjectState
	found, err := s.get(projectsBucket, name, &st)
	if err != nil || !found {
		return nil, err
	}

	return &st, nil
}

// PutProject stores a project's output manifest.
func (s *Store) PutProject(name string, st *ProjectState) error {
	st.UpdatedAt = time.Now()
	return s.put(projectsBucket, name, st)
}

// DeleteProject removes a project's output manifest and the file entries for
// its recorded sources.
func (s *Store) DeleteProject(name string) error {
	st, err := s.GetProject(name)
	if err != nil {
		return err
	}

	if st != nil {
		for _, src := range st.Sources {
			if err := s.DeleteFile(src); err != nil {
				return err
			}
		}
	}

	return s.delete(projectsBucket, name)
}
