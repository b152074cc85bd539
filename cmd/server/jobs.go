package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/anonto42/nano-community/backend/internal/router"
)

func reapStoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reap-stories",
		Short: "Delete stories older than 24 hours together with their views",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := log.Logger.WithContext(cmd.Context())
			a, err := bootstrap(ctx, cfg, router.Externals{})
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.services.Stories.Reap(ctx)
			if err != nil {
				return fmt.Errorf("reap stories: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reaped %d stories\n", n)
			return nil
		},
	}
}

func syncSalesCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sync-sales",
		Short: "Reconcile account plans with the last year of Kiwify sales",
		Long: `Walks the last 365 days of sales in 90-day windows, reading every page
of each window, then applies approvals and refunds to account plans oldest first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Kiwify.SalesAPIEnabled() {
				return fmt.Errorf("KIWIFY_CLIENT_ID, KIWIFY_CLIENT_SECRET and KIWIFY_ACCOUNT_ID are required")
			}
			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), "dry run: configuration ok, no changes made")
				return nil
			}
			ctx := log.Logger.WithContext(cmd.Context())
			a, err := bootstrap(ctx, cfg, router.Externals{})
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.services.Billing.SyncSales(ctx)
			if err != nil {
				return fmt.Errorf("sync sales: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "windows=%d sales=%d activated=%d downgraded=%d skipped=%d\n",
				report.Windows, report.Sales, report.Activated, report.Downgraded, report.Skipped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate configuration without calling the API")
	return cmd
}
