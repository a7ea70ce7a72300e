package config

import (
	"os"
	"path/filepath"
)

// configExts lists the file extensions a config file may carry, in the
// order they are probed.
var configExts = []string{"yml", "yaml", "json", "toml"}

// firstExisting returns the first of base.<ext> under dir that exists on
// disk, or "" when none does.
func firstExisting(dir, base string) string {
	for _, ext := range configExts {
		path := filepath.Join(dir, base+"."+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// FindLocalConfig locates a workspace-local .jenga.* file, starting at dir
// and walking toward the filesystem root.
func FindLocalConfig(dir string) string {
	for {
		if path := firstExisting(dir, ".jenga"); path != "" {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}

		dir = parent
	}
}
