package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"validity.app/auditor/common/logger"
	"validity.app/auditor/core/config"
	"validity.app/auditor/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the oracle call ledger tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(config.ServiceTypeCLI)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		slog.SetDefault(slog.New(logger.NewHandler(cfg, cmd.ErrOrStderr())))

		if !cfg.DB.Enabled() {
			return errors.New("DATABASE_URL is not set")
		}

		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()

		if err := database.Migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}
