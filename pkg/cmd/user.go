package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/plan"
)

var (
	userCmd = &cobra.Command{
		Use:   "user",
		Short: "user administration commands",
	}

	userPlanCmd = &cobra.Command{
		Use:   "plan <email> <free|pro>",
		Short: "change the plan of a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, closeFn, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := service.NewUsageService(ctx).SetPlan(ctx, args[0], plan.Plan(args[1])); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s is now on plan %s\n", args[0], args[1])

			return nil
		},
	}
)

func registerUserCommands() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userPlanCmd)
}
