package cmd

import (
	"fmt"

	"github.com/RihenUniverse/jenga/internal/cache"
	"github.com/RihenUniverse/jenga/internal/config"
	"github.com/RihenUniverse/jenga/internal/executor"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:          "cache",
	Short:        "Inspect or clear the build cache",
	SilenceUsage: true,
}

var cacheStatsCmd = &cobra.Command{
	Use:          "stats",
	Short:        "Show build cache entry counts",
	RunE:         runCacheStats,
	SilenceUsage: true,
}

var cacheClearCmd = &cobra.Command{
	Use:          "clear",
	Short:        "Drop every build cache entry",
	RunE:         runCacheClear,
	SilenceUsage: true,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func openWorkspaceStore(cmd *cobra.Command) (*cache.Store, error) {
	opts, err := config.NewLoader().LoadForBuild(cmd)
	if err != nil {
		return nil, err
	}

	ws, err := loadWorkspace(opts)
	if err != nil {
		return nil, err
	}

	return cache.Open(executor.StateDir(ws.Location))
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	store, err := openWorkspaceStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	files, projects, links, err := store.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("files: %d\nprojects: %d\nlinks: %d\nlocation: %s\n", files, projects, links, store.Dir())

	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	store, err := openWorkspaceStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		return err
	}

	fmt.Println("build cache cleared")

	return nil
}
