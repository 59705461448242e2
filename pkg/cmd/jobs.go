package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/teamvault/pkg/internal/jobs"
)

var (
	jobsCmd = &cobra.Command{
		Use:   "jobs",
		Short: "maintenance job commands",
	}

	jobsListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all maintenance jobs",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Maintenance jobs:")
			for _, name := range jobs.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+name)
			}
		},
	}

	jobsRunCmd = &cobra.Command{
		Use:   "run <name>",
		Short: "run a maintenance job once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, closeFn, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := jobs.RunByName(ctx, cfg.Jobs, args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "job %s finished\n", args[0])

			return nil
		},
	}
)

func registerJobsCommands() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd, jobsRunCmd)
}
