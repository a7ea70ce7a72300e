package cmd

import (
	"fmt"

	"github.com/RihenUniverse/jenga/internal/config"
	"github.com/RihenUniverse/jenga/internal/graph"
	"github.com/spf13/cobra"
)

var orderCmd = &cobra.Command{
	Use:          "order",
	Short:        "Print the build order",
	Long:         `Print the dependency-ordered project list without building anything.`,
	RunE:         runOrder,
	SilenceUsage: true,
}

func runOrder(cmd *cobra.Command, args []string) error {
	opts, err := config.NewLoader().LoadForBuild(cmd)
	if err != nil {
		return err
	}

	ws, err := loadWorkspace(opts)
	if err != nil {
		return err
	}

	order, err := graph.ComputeBuildOrder(ws.Projects)
	if err != nil {
		return err
	}

	selected, err := selectProjects(ws, order, opts.Project)
	if err != nil {
		return err
	}

	for i, name := range visibleProjects(ws, selected) {
		fmt.Printf("%d. %s\n", i+1, name)
	}

	return nil
}
