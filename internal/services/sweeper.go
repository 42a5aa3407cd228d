package services

import (
	"context"
	"path"
	"time"

	"go.uber.org/zap"
	"schuppenweg-backend/internal/observability"
)

type SweepResult struct {
	Scanned      int
	Expired      int
	BlobsRemoved int
}

// TempSweeper removes temp namespaces nobody migrated. A namespace expires
// when its newest blob is older than the TTL.
type TempSweeper struct {
	blobs  BlobStore
	ttl    time.Duration
	dryRun bool
	now    func() time.Time
	logger *zap.Logger
}

func NewTempSweeper(blobs BlobStore, ttl time.Duration, logger *zap.Logger) *TempSweeper {
	return &TempSweeper{
		blobs:  blobs,
		ttl:    ttl,
		now:    time.Now,
		logger: observability.OrNop(logger),
	}
}

// WithDryRun reports what would be removed without deleting anything.
func (s *TempSweeper) WithDryRun(dryRun bool) *TempSweeper {
	s.dryRun = dryRun
	return s
}

func (s *TempSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	namespaces, err := listTempNamespaces(ctx, s.blobs, s.logger)
	if err != nil {
		return result, err
	}

	cutoff := s.now().Add(-s.ttl)
	for _, ns := range namespaces {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Scanned++
		if len(ns.Files) == 0 || ns.Newest.After(cutoff) {
			continue
		}

		paths := make([]string, 0, len(ns.Files))
		for _, f := range ns.Files {
			paths = append(paths, path.Join(ns.prefix(), f.Name))
		}

		result.Expired++
		if s.dryRun {
			s.logger.Info("sweep: would remove namespace",
				zap.String("temp_id", ns.ID), zap.Int("blobs", len(paths)), zap.Time("newest", ns.Newest))
			continue
		}
		if err := s.blobs.Remove(ctx, paths...); err != nil {
			s.logger.Warn("sweep: remove failed", zap.String("temp_id", ns.ID), zap.Error(err))
			continue
		}
		result.BlobsRemoved += len(paths)
	}

	s.logger.Info("sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("expired", result.Expired),
		zap.Int("removed", result.BlobsRemoved),
		zap.Bool("dry_run", s.dryRun))
	return result, nil
}

// Run sweeps once per interval until ctx is cancelled.
func (s *TempSweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("temp sweeper started", zap.Duration("interval", interval), zap.Duration("ttl", s.ttl))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("temp sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("sweep failed", zap.Error(err))
			}
		}
	}
}
