package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	opts, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig, opts.Config)
	assert.Equal(t, HostPlatform(), opts.Platform)
	assert.Equal(t, runtime.NumCPU(), opts.Jobs, "zero jobs defaults to core count")
	assert.False(t, opts.NoCache)
	assert.False(t, opts.FailFast)
}

func TestLoadFromViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("config", "Release")
	viper.Set("platform", "android")
	viper.Set("arch", "arm64")
	viper.Set("jobs", 4)
	viper.Set("fail-fast", true)

	opts, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Release", opts.Config)
	assert.Equal(t, "android", opts.Platform)
	assert.Equal(t, "arm64", opts.Arch)
	assert.Equal(t, 4, opts.Jobs)
	assert.True(t, opts.FailFast)
}

func TestValidateRejectsNegativeJobs(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("jobs", -1)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid job count")
}

func TestFindLocalConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path := filepath.Join(root, ".jenga.yml")
	require.NoError(t, os.WriteFile(path, []byte("config: Release\n"), 0o644))

	assert.Equal(t, path, FindLocalConfig(nested))
	assert.Equal(t, "", FindLocalConfig(t.TempDir()))
}

func TestFirstExistingExtensionOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("force = true\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("force: true\n"), 0o644))

	assert.Equal(t, filepath.Join(dir, "config.yaml"), firstExisting(dir, "config"),
		"yaml wins over toml when both exist")
	assert.Equal(t, "", firstExisting(dir, ".jenga"))
}
