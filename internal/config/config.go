package config

import (
	"fmt"
	"runtime"

	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultConfig   = "Debug"
	DefaultNoCache  = false
	DefaultForce    = false
	DefaultFailFast = false
	DefaultVerbose  = false
)

// Options is the CLI-exposed scalars bag handed to the build core.
type Options struct {
	// Workspace is the path to the workspace file
	Workspace string

	// Config is the build configuration name (e.g. Debug, Release)
	Config string

	// Platform is the target platform name
	Platform string

	// Arch is the optional target architecture for multi-ABI builds
	Arch string

	// Project restricts the build to one project and its dependencies
	Project string

	// Jobs caps compile-job parallelism
	Jobs int

	// NoCache disables the build cache entirely
	NoCache bool

	// Force rebuilds everything regardless of cache state
	Force bool

	// FailFast stops launching compile jobs after the first failure
	FailFast bool

	// Verbose enables debug logging
	Verbose bool
}

func Load() (*Options, error) {
	opts := &Options{
		Workspace: viper.GetString("workspace"),
		Config:    viper.GetString("config"),
		Platform:  viper.GetString("platform"),
		Arch:      viper.GetString("arch"),
		Project:   viper.GetString("project"),
		Jobs:      viper.GetInt("jobs"),
		NoCache:   viper.GetBool("no-cache"),
		Force:     viper.GetBool("force"),
		FailFast:  viper.GetBool("fail-fast"),
		Verbose:   viper.GetBool("verbose"),
	}

	if opts.Config == "" {
		opts.Config = DefaultConfig
	}

	if opts.Platform == "" {
		opts.Platform = HostPlatform()
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return opts, nil
}

func (o *Options) Validate() error {
	if o.Jobs < 0 {
		return fmt.Errorf("invalid job count: %d", o.Jobs)
	}

	if o.Jobs == 0 {
		o.Jobs = runtime.NumCPU()
	}

	return nil
}

// HostPlatform maps the host OS to its platform name.
func HostPlatform() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	default:
		return runtime.GOOS
	}
}
