package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"schuppenweg-backend/internal/config"
	"schuppenweg-backend/internal/database"
	"schuppenweg-backend/internal/services"
	"schuppenweg-backend/internal/supabase"
)

// Stores bundles the persistence dependencies shared by the server and the CLI.
type Stores struct {
	Store  services.Store
	Admin  services.AdminReader
	Blobs  *supabase.StorageClient
	closer func() error
}

func (s *Stores) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer()
}

// OpenStores connects the order/image store for cfg.DBDriver and the blob store.
// Postgres mode applies pending SQL migrations first when runMigrations is set.
func OpenStores(ctx context.Context, cfg *config.Config, runMigrations bool, logger *zap.Logger) (*Stores, error) {
	blobs, err := supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, cfg.SupabaseStorageBucket)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}

	switch cfg.DBDriver {
	case config.DriverSQLite:
		store, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("using sqlite store", zap.String("path", cfg.SQLitePath))
		return &Stores{Store: store, Admin: store, Blobs: blobs, closer: store.Close}, nil

	default:
		if runMigrations {
			if err := MigrateDatabase(ctx, cfg.DatabaseURL, logger); err != nil {
				return nil, err
			}
		}
		db, err := supabase.NewDatabaseClient(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		reader, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("supabase client: %w", err)
		}
		return &Stores{Store: db, Admin: reader, Blobs: blobs, closer: db.Close}, nil
	}
}

func MigrateDatabase(ctx context.Context, dbURL string, logger *zap.Logger) error {
	migrator, err := database.NewMigrator(dbURL, logger)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}
