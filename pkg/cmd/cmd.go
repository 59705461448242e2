// Package cmd contains the command line applications for the project.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/teamvault/pkg/app"
	"github.com/yeisme/teamvault/pkg/configs"
	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/internal/storage"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:          "teamvault",
		Short:        "TeamVault multi-tenant workspace and file service",
		SilenceUsage: true,
		RunE:         runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP server",
		RunE:  runServe,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose output")

	rootCmd.AddCommand(serveCmd)

	registerConfigsCommands()
	registerBackendCommands()
	registerMigrateCommands()
	registerJobsCommands()
	registerUserCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runServe(cmd *cobra.Command, args []string) error {
	var opts []app.Option
	if debug {
		opts = append(opts, app.WithDebug())
	}

	a, err := app.NewApp(configPath, opts...)
	if err != nil {
		return err
	}

	return a.Run()
}

func loadConfig() (configs.AppConfig, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return configs.AppConfig{}, err
	}

	cfg := *configs.GetConfig()
	if debug {
		app.WithDebug()(&cfg)
		configs.SetConfig(cfg)
	}

	return cfg, nil
}

// bootstrap 为一次性命令创建存储与服务依赖，返回的 close 需由调用方执行.
func bootstrap(ctx context.Context) (context.Context, configs.AppConfig, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, nil, err
	}

	manager, err := storage.NewManager(ctx, &cfg)
	if err != nil {
		return nil, cfg, nil, fmt.Errorf("init storage: %w", err)
	}

	deps, err := service.NewDeps(manager, cfg)
	if err != nil {
		_ = manager.Close()
		return nil, cfg, nil, err
	}

	return service.WithDeps(ctx, deps), cfg, func() { _ = manager.Close() }, nil
}
