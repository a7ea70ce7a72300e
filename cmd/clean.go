package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/RihenUniverse/jenga/internal/cache"
	"github.com/RihenUniverse/jenga/internal/config"
	"github.com/RihenUniverse/jenga/internal/executor"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:          "clean [project...]",
	Short:        "Remove build outputs",
	Long:         `Remove the recorded outputs and cache entries of the named projects, or of every project with --all.`,
	RunE:         runClean,
	SilenceUsage: true,
}

func init() {
	cleanCmd.Flags().Bool("all", false, "Clean every project and delete the state directory")
}

func runClean(cmd *cobra.Command, args []string) error {
	opts, err := config.NewLoader().LoadForBuild(cmd)
	if err != nil {
		return err
	}

	ws, err := loadWorkspace(opts)
	if err != nil {
		return err
	}

	all, _ := cmd.Flags().GetBool("all")

	names := args
	if opts.Project != "" {
		names = append(names, opts.Project)
	}

	if all {
		names = ws.ProjectNames()
	}

	if len(names) == 0 {
		return fmt.Errorf("nothing to clean: name a project or pass --all (valid: %s)",
			strings.Join(ws.ProjectNames(), ", "))
	}

	store, err := cache.Open(executor.StateDir(ws.Location))
	if err != nil {
		return err
	}
	defer store.Close()

	exec, err := executor.New(ws, store, executorOptions(opts))
	if err != nil {
		return err
	}

	for _, name := range names {
		removed, err := exec.Clean(name)
		if err != nil {
			return err
		}

		fmt.Printf("== %s: removed %d file(s)\n", name, len(removed))
	}

	if all {
		store.Close()

		if err := os.RemoveAll(executor.StateDir(ws.Location)); err != nil {
			return err
		}

		fmt.Println("state directory removed")
	}

	return nil
}
