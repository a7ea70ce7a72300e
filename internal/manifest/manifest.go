// Package manifest caches the fully-expanded compile and link commands for
// one (project, config, platform) target, so repeated builds skip
// glob-expansion, dependency discovery and flag assembly. The per-file
// recompile decision stays with the incremental engine; the manifest only
// answers "what would be run".
package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// SchemaVersion is bumped whenever the persisted layout changes. A manifest
// with an unexpected version is treated as absent.
const SchemaVersion = 1

// CompileCommand is one fully-expanded compiler invocation.
type CompileCommand struct {
	Source string   `json:"source"`
	Object string   `json:"object"`
	Exe    string   `json:"exe"`
	Args   []string `json:"args"`

	// Deps are the header dependencies discovered at generation time.
	Deps []string `json:"deps,omitempty"`
}

// LinkCommand is the single link/archive invocation of a target.
type LinkCommand struct {
	Exe    string   `json:"exe"`
	Args   []string `json:"args"`
	Output string   `json:"output"`
}

// Manifest is the persisted command list for one target.
type Manifest struct {
	Version  int    `json:"version"`
	Project  string `json:"project"`
	Config   string `json:"config"`
	Platform string `json:"platform"`

	// IdentityHash covers the project definition, toolchain, config and
	// platform. A mismatch invalidates the manifest wholesale.
	IdentityHash string `json:"identity_hash"`

	GeneratedAt time.Time `json:"generated_at"`

	Compiles []CompileCommand `json:"compiles"`
	Link     LinkCommand      `json:"link"`
}

// Path returns the manifest location for a target under the manifest
// directory.
func Path(dir, project, config, platform string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s-%s.json", project, config, platform))
}

// Load reads a manifest, returning nil when it is absent, unreadable or has
// an unexpected version. Staleness beyond that is NeedsRegeneration's job.
func Load(path string) *Manifest {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		slog.Warn("discarding unreadable build manifest", slog.String("path", path))
		return nil
	}

	if m.Version != SchemaVersion {
		return nil
	}

	return &m
}

// Save writes the manifest atomically: to a temporary file first, then
// renamed into place, so a crash mid-save never leaves a corrupt manifest.
func (m *Manifest) Save(path string) error {
	m.Version = SchemaVersion

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace manifest: %w", err)
	}

	return nil
}

// NeedsRegeneration reports whether the manifest must be rebuilt: it is
// absent, its identity hash differs, or any source or discovered dependency
// is newer than the generation timestamp. Regeneration is wholesale, never
// incremental.
func NeedsRegeneration(m *Manifest, identityHash string, sources []string) bool {
	if m == nil {
		return true
	}

	if m.IdentityHash != identityHash {
		return true
	}

	if newerThan(sources, m.GeneratedAt) {
		return true
	}

	for _, c := range m.Compiles {
		if newerThan(c.Deps, m.GeneratedAt) {
			return true
		}
	}

	// A source file added or removed changes the set even when nothing is
	// newer.
	if len(sources) != len(m.Compiles) {
		return true
	}

	known := make(map[string]bool, len(m.Compiles))
	for _, c := range m.Compiles {
		known[c.Source] = true
	}

	for _, src := range sources {
		if !known[src] {
			return true
		}
	}

	return false
}

func newerThan(paths []string, ts time.Time) bool {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			// A listed file that vanished is staleness too.
			return true
		}

		if info.ModTime().After(ts) {
			return true
		}
	}

	return false
}
