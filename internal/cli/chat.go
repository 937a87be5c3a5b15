package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dwern/persona/internal/agent"
	"github.com/dwern/persona/internal/llm"
)

func newChatCmd() *cobra.Command {
	var topic string

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Run a single chat turn from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")

			orchestrator, err := buildOrchestrator(cfg, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := orchestrator.Turn(ctx, agent.TurnRequest{
				Messages: []llm.Message{{Role: llm.RoleUser, Content: message}},
				Topic:    topic,
				OnPlanning: func(trace agent.PlanningTrace) {
					fmt.Printf("[planning] %s\n", trace.Reasoning)
				},
			})
			if err != nil {
				return err
			}

			fmt.Println(result.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "topic context (skiing, cycling, reading, music, photography)")

	return cmd
}
