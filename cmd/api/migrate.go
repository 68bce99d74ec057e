package main

import (
	"fmt"

	"poultrymarket/internal/database"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|down]",
		Short: "Apply or roll back the database schema",
		Long: `Run the embedded schema migrations against the configured database.

Examples:
  poultrymarket migrate
  poultrymarket migrate down`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(database.Up), string(database.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := database.Up
			if len(args) == 1 {
				direction = database.Direction(args[0])
			}
			if direction != database.Up && direction != database.Down {
				return fmt.Errorf("unknown migration direction %q (must be up or down)", args[0])
			}

			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			return database.Migrate(cfg.Database.ConnectionString(), direction, logger)
		},
	}
}
