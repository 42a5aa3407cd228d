package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"schuppenweg-backend/internal/app"
	"schuppenweg-backend/internal/config"
	"schuppenweg-backend/internal/observability"
	"schuppenweg-backend/internal/services"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "storefront-cli",
		Short:        "Maintenance commands for the storefront backend",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(migrateDBCmd())
	rootCmd.AddCommand(sweepTempCmd())
	rootCmd.AddCommand(backfillImagesCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func migrateDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-db",
		Short: "Apply pending SQL migrations to the Postgres database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			if cfg.DBDriver != config.DriverPostgres {
				return fmt.Errorf("migrate-db needs DB_DRIVER=%s; sqlite schemas are created on open", config.DriverPostgres)
			}
			if err := app.MigrateDatabase(cmd.Context(), cfg.DatabaseURL, logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}

func sweepTempCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep-temp",
		Short: "Remove temp upload namespaces older than TEMP_TTL_HOURS",
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			stores, err := app.OpenStores(cmd.Context(), cfg, false, logger)
			if err != nil {
				return err
			}
			defer stores.Close()

			result, err := services.NewTempSweeper(stores.Blobs, cfg.TempTTL, logger).
				WithDryRun(dryRun).
				Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d namespaces, %d expired, %d blobs removed\n",
				result.Scanned, result.Expired, result.BlobsRemoved)
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Report expired namespaces without deleting")

	return cmd
}

func backfillImagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill-images",
		Short: "Move leftover temp photos onto orders that have no images",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			stores, err := app.OpenStores(cmd.Context(), cfg, false, logger)
			if err != nil {
				return err
			}
			defer stores.Close()

			migration := services.NewMigrationEngine(stores.Blobs, stores.Store, stores.Store, logger)
			result, err := services.NewBackfiller(stores.Store, migration, logger).Run(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Checked %d orders, %d matched, %d photos moved, %d failures\n",
				result.Orders, result.Matched, result.Moved, result.Failures)
			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 50, "Maximum orders to inspect")

	return cmd
}
