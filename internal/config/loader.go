package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Loader handles configuration loading from various sources
type Loader struct{}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadForBuild loads configuration for build operations: defaults, then the
// global config file, then a workspace-local .jenga.* file, then command
// flags, each layer overriding the previous.
func (l *Loader) LoadForBuild(cmd *cobra.Command) (*Options, error) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.loadLocalConfig()
	l.bindCommandFlags(cmd)

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("config", DefaultConfig)
	viper.SetDefault("platform", HostPlatform())
	viper.SetDefault("no-cache", DefaultNoCache)
	viper.SetDefault("force", DefaultForce)
	viper.SetDefault("fail-fast", DefaultFailFast)
	viper.SetDefault("verbose", DefaultVerbose)
}

// loadGlobalConfig loads the per-user config file
func (l *Loader) loadGlobalConfig() {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return
	}

	globalPath := firstExisting(filepath.Join(configDir, "jenga"), "config")
	if globalPath == "" {
		return
	}

	viper.SetConfigFile(globalPath)
	_ = viper.ReadInConfig()
}

// loadLocalConfig loads workspace-local configuration
func (l *Loader) loadLocalConfig() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	localPath := FindLocalConfig(cwd)
	if localPath != "" {
		viper.SetConfigFile(localPath)
		_ = viper.ReadInConfig()
	}
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	for _, name := range []string{
		"workspace", "config", "platform", "arch", "project",
		"jobs", "no-cache", "force", "fail-fast", "verbose",
	} {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = viper.BindPFlag(name, f)
		}
	}
}
