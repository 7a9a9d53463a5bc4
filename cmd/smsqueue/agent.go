package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeventeLantos/sms-queue/internal/agent"
	"github.com/LeventeLantos/sms-queue/internal/config"
	"github.com/LeventeLantos/sms-queue/internal/logger"
	"github.com/LeventeLantos/sms-queue/internal/tracing"
)

func newAgentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agent",
		Short: "Run the reference polling sender",
		Long: `Agent polls GET /sms/pending on a running smsqueue server, forwards each
message to the delivery gateway at WEBHOOK_URL and reports the result
back with mark-sent or mark-failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadAgent()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := logger.New(cfg.Log.Level, cfg.Log.Format)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, log)
			if err != nil {
				return fmt.Errorf("tracing: %w", err)
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdownTracing(sctx)
			}()

			return agent.Run(ctx, cfg, log)
		},
	}
}
