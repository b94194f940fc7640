// cmd/launch.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lodestar-research/lodestar/internal/launcher"
	"github.com/lodestar-research/lodestar/internal/observability"
)

func newLaunchCommand() *cobra.Command {
	var (
		assignmentsFile string
		parallel        bool
	)

	launchCmd := &cobra.Command{
		Use:   "launch",
		Short: "Fan a batch of research assignments out across crawl processes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer observability.Sync()
			logger := observability.GetLogger()

			data, err := os.ReadFile(assignmentsFile)
			if err != nil {
				return fmt.Errorf("read assignments file: %w", err)
			}
			var assignments []launcher.Assignment
			if err := json.Unmarshal(data, &assignments); err != nil {
				return fmt.Errorf("parse assignments file: %w", err)
			}

			if cmd.Flags().Changed("parallel") {
				cfg.Launcher.Parallel = parallel
			}

			l, err := launcher.New(cfg.Launcher, logger)
			if err != nil {
				return err
			}
			return l.Run(cmd.Context(), assignments)
		},
	}

	launchCmd.Flags().StringVar(&assignmentsFile, "assignments", "assignments.json", "JSON file with the list of assignments")
	launchCmd.Flags().BoolVar(&parallel, "parallel", false, "run assignments in parallel")
	return launchCmd
}
