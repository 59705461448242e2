package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/teamvault/pkg/internal/storage"
	"github.com/yeisme/teamvault/pkg/internal/storage/db"
	"github.com/yeisme/teamvault/pkg/internal/storage/kv"
	"github.com/yeisme/teamvault/pkg/internal/storage/mq"
)

const backendCheckTimeout = 10 * time.Second

var (
	backendsCmd = &cobra.Command{
		Use:     "backends",
		Short:   "list compiled-in storage backends, * marks the configured one",
		Aliases: []string{"drivers"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printBackends(out, "db", string(cfg.DB.Type), db.GetRegisteredDBTypes())
			printBackends(out, "kv", string(cfg.KV.GetKVType()), kv.GetRegisteredKVTypes())
			printBackends(out, "mq", string(cfg.MQ.GetMQType()), mq.RegisteredTypes())

			return nil
		},
	}

	backendsCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "connect to every configured backend and report its status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), backendCheckTimeout)
			defer cancel()

			m, err := storage.NewManager(ctx, &cfg)
			if err != nil {
				return fmt.Errorf("init storage: %w", err)
			}
			defer m.Close()

			return checkBackends(ctx, cmd.OutOrStdout(), m)
		},
	}
)

func printBackends[T ~string](w io.Writer, kind, current string, types []T) {
	names := make([]string, 0, len(types))

	for _, t := range types {
		name := string(t)
		if name == current {
			name += "*"
		}

		names = append(names, name)
	}

	fmt.Fprintf(w, "%-3s %s\n", kind, strings.Join(names, " "))
}

func checkBackends(ctx context.Context, w io.Writer, m *storage.Manager) error {
	results := m.ProbeAll(ctx)
	failed := 0

	for _, name := range storage.Components {
		if err := results[name]; err != nil {
			failed++
			fmt.Fprintf(w, "%-3s FAIL %v\n", name, err)

			continue
		}

		switch name {
		case storage.ComponentMQ:
			fmt.Fprintf(w, "%-3s ok (%s)\n", name, m.MQ.Type())
		case storage.ComponentKV:
			fmt.Fprintf(w, "%-3s ok (%s)\n", name, m.KV.Type())
		default:
			fmt.Fprintf(w, "%-3s ok\n", name)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d backend(s) unavailable", failed)
	}

	return nil
}

func registerBackendCommands() {
	backendsCmd.AddCommand(backendsCheckCmd)
	rootCmd.AddCommand(backendsCmd)
}
