package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"poultrymarket/internal/database"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func dbCheckCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "db-check",
		Short: "Check database connectivity and print server details",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			start := time.Now()
			pool, err := database.NewPool(ctx, cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer pool.Close()

			info, err := database.Inspect(ctx, pool)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetAutoWrapText(false)
			table.SetHeader([]string{"Check", "Value"})
			table.AppendBulk([][]string{
				{"Address", fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port)},
				{"Database", info.Database},
				{"User", info.User},
				{"Server", info.Version},
				{"Public tables", strconv.Itoa(info.Tables)},
				{"Round trip", time.Since(start).Round(time.Millisecond).String()},
			})
			table.Render()
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "connection timeout")
	return cmd
}
