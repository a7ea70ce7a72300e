package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/RihenUniverse/jenga/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:          "jenga",
	Short:        "Incremental build orchestrator for native projects",
	Long:         `Compile and link C/C++ workspaces incrementally, driven by a jenga.yaml workspace file.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(verboseFlag(cmd))
	},
}

// Execute runs the root command under a cancellable context so an interrupt
// stops queued work while running compile jobs finish.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)

	rootCmd.PersistentFlags().StringP("workspace", "w", "", "Path to the workspace file (default: search upward for jenga.yaml)")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Build configuration name (e.g. Debug, Release)")
	rootCmd.PersistentFlags().StringP("platform", "p", "", "Target platform name")
	rootCmd.PersistentFlags().String("arch", "", "Target architecture for multi-ABI builds")
	rootCmd.PersistentFlags().String("project", "", "Build only this project and its dependencies")
	rootCmd.PersistentFlags().IntP("jobs", "j", 0, "Maximum parallel compile jobs (0 = number of CPUs)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable the build cache")
	rootCmd.PersistentFlags().BoolP("force", "f", false, "Rebuild everything regardless of cache state")
	rootCmd.PersistentFlags().Bool("fail-fast", false, "Stop launching compile jobs after the first failure")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(orderCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cacheCmd)

	viper.SetDefault("verbose", false)
}

func verboseFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("verbose")
	return v || viper.GetBool("verbose")
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
