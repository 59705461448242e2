package cmd

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/teamvault/pkg/configs"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "inspect the effective configuration",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := loadConfig()
			return err
		},
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the config file in use",
		Run: func(cmd *cobra.Command, args []string) {
			file := ""
			if v := configs.GetViper(); v != nil {
				file = v.ConfigFileUsed()
			}

			if file == "" {
				file = "(defaults and " + configs.EnvPrefix + "_* environment only)"
			}

			fmt.Fprintln(cmd.OutOrStdout(), file)
		},
	}

	configShowCmd = &cobra.Command{
		Use:     "show",
		Short:   "print the effective config as JSON with secrets hidden",
		Aliases: []string{"debug"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c := configs.GetConfig().Redacted()
			if showSecrets {
				c = *configs.GetConfig()
			}

			b, err := sonic.ConfigStd.MarshalIndent(c, "", "  ")
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			return nil
		},
	}

	configValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "load and validate the config, exit non-zero on error",
		Run: func(cmd *cobra.Command, args []string) {
			// PersistentPreRunE 已完成加载与校验
			fmt.Fprintln(cmd.OutOrStdout(), "config ok")
		},
	}

	showSecrets bool
)

func registerConfigsCommands() {
	configShowCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "do not hide passwords and keys")

	configCmd.AddCommand(configPathCmd, configShowCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
