package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeventeLantos/sms-queue/internal/config"
	"github.com/LeventeLantos/sms-queue/internal/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadAll()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := logger.New(cfg.Log.Level, cfg.Log.Format)

			db, _, err := openStore(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			return db.Close()
		},
	}
}
