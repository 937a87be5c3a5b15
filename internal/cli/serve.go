package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dwern/persona/internal/gateway"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat gateway server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			orchestrator, err := buildOrchestrator(cfg, log)
			if err != nil {
				return err
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := gateway.New(cfg.Server, orchestrator, log)
			return server.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server.port")
	cmd.Flags().StringVar(&bind, "bind", "", "override server.bind")

	return cmd
}
