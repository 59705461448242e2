package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/teamvault/pkg/internal/storage/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client, err := db.New(cmd.Context(), &cfg.DB)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Migrate(cmd.Context()); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "migration finished")

		return nil
	},
}

func registerMigrateCommands() {
	rootCmd.AddCommand(migrateCmd)
}
