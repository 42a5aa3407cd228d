package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"schuppenweg-backend/internal/observability"
)

type BackfillResult struct {
	Orders   int
	Matched  int
	Moved    int
	Failures int
}

// Backfiller re-runs temp migration for orders that ended up without photos.
type Backfiller struct {
	orders    OrderStore
	migration *MigrationEngine
	logger    *zap.Logger
}

func NewBackfiller(orders OrderStore, migration *MigrationEngine, logger *zap.Logger) *Backfiller {
	return &Backfiller{
		orders:    orders,
		migration: migration,
		logger:    observability.OrNop(logger),
	}
}

func (b *Backfiller) Run(ctx context.Context, limit int) (BackfillResult, error) {
	var result BackfillResult

	orders, err := b.orders.ListOrdersWithoutImages(ctx, limit)
	if err != nil {
		return result, fmt.Errorf("list orders without images: %w", err)
	}
	result.Orders = len(orders)

	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		moved, err := b.migration.MigrateTempImages(ctx, order.ID)
		if err != nil {
			result.Failures++
			b.logger.Warn("backfill: migration failed", zap.String("order_id", order.ID.String()), zap.Error(err))
			continue
		}
		if moved > 0 {
			result.Matched++
			result.Moved += moved
		}
	}

	b.logger.Info("backfill finished",
		zap.Int("orders", result.Orders),
		zap.Int("matched", result.Matched),
		zap.Int("moved", result.Moved),
		zap.Int("failures", result.Failures))
	return result, nil
}
