package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"schuppenweg-backend/internal/models"
	"schuppenweg-backend/internal/observability"
)

const (
	TempRoot = "temp"

	// maxTempNamespaces bounds the heuristic scan to the most recent uploads.
	maxTempNamespaces = 100

	finalContentType = "image/jpeg"
)

// errPositionRecorded means the order already has a photo for the position.
var errPositionRecorded = errors.New("position already recorded")

// TempPath is where the upload endpoint stores a pre-payment photo.
func TempPath(tempID string, position models.Position, ext string) string {
	return fmt.Sprintf("%s/%s/%s.%s", TempRoot, tempID, position, ext)
}

// FinalPath is the canonical permanent location of an order photo.
func FinalPath(orderID uuid.UUID, position models.Position) string {
	return fmt.Sprintf("%s/%s.jpg", orderID, position)
}

// MigrationEngine moves pre-payment photos from temp/{tempId}/ into the
// order's permanent folder and records them in the image store. Positions the
// order already has are never touched, so re-running it is a no-op.
//
// When the order carries a temp_id only that namespace is considered. Without
// one the engine falls back to scanning the newest temp namespaces and takes
// the first that yields any match. That fallback is racy: under concurrent
// checkouts a newer customer's namespace can be attributed to an older order
// whose own namespace was never migrated. Callers that know the temp_id should
// record it on the order before migrating.
type MigrationEngine struct {
	blobs  BlobStore
	orders OrderStore
	images ImageStore
	logger *zap.Logger
}

func NewMigrationEngine(blobs BlobStore, orders OrderStore, images ImageStore, logger *zap.Logger) *MigrationEngine {
	return &MigrationEngine{
		blobs:  blobs,
		orders: orders,
		images: images,
		logger: observability.OrNop(logger),
	}
}

// MigrateTempImages returns how many positions were moved into orderID.
// Finding nothing is not an error.
func (e *MigrationEngine) MigrateTempImages(ctx context.Context, orderID uuid.UUID) (int, error) {
	log := e.logger.With(zap.String("order_id", orderID.String()))

	present, err := e.presentPositions(ctx, orderID)
	if err != nil {
		return 0, err
	}
	if len(present) == len(models.Positions) {
		log.Debug("migration: order already has every position")
		return 0, nil
	}

	order, err := e.orders.GetOrder(ctx, orderID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return 0, fmt.Errorf("lookup order: %w", err)
	}
	if order != nil && order.TempID.Valid && order.TempID.String != "" {
		tempID := order.TempID.String
		files, err := e.listNamespace(ctx, tempID)
		if err != nil {
			return 0, err
		}
		moved := e.migrateFiles(ctx, orderID, tempID, files, present)
		log.Info("migration: recorded namespace done", zap.String("temp_id", tempID), zap.Int("moved", moved))
		return moved, nil
	}

	namespaces, err := listTempNamespaces(ctx, e.blobs, log)
	if err != nil {
		return 0, err
	}
	sortNewestFirst(namespaces)
	if len(namespaces) > maxTempNamespaces {
		namespaces = namespaces[:maxTempNamespaces]
	}

	for _, ns := range namespaces {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		moved := e.migrateFiles(ctx, orderID, ns.ID, ns.Files, present)
		if moved > 0 {
			log.Info("migration: matched temp namespace by recency",
				zap.String("temp_id", ns.ID), zap.Int("moved", moved))
			return moved, nil
		}
	}

	log.Debug("migration: no temp images found")
	return 0, nil
}

func (e *MigrationEngine) migrateFiles(ctx context.Context, orderID uuid.UUID, tempID string, files []models.BlobObject, present map[models.Position]bool) int {
	log := e.logger.With(zap.String("order_id", orderID.String()), zap.String("temp_id", tempID))
	folder := path.Join(TempRoot, tempID)

	moved := 0
	for _, position := range models.Positions {
		if present[position] {
			continue
		}
		name, ok := findPositionBlob(files, position)
		if !ok {
			continue
		}
		err := e.movePosition(ctx, orderID, position, path.Join(folder, name))
		switch {
		case err == nil:
			present[position] = true
			moved++
		case errors.Is(err, errPositionRecorded):
			log.Debug("migration: position recorded concurrently", zap.String("position", string(position)))
		default:
			log.Warn("migration: position skipped",
				zap.String("position", string(position)), zap.Error(err))
		}
	}
	return moved
}

// MovePosition moves the photo for one position out of temp/{tempID}. The
// orchestrator uses it for photos the client reports as already uploaded.
func (e *MigrationEngine) MovePosition(ctx context.Context, orderID uuid.UUID, tempID string, position models.Position) error {
	files, err := e.listNamespace(ctx, tempID)
	if err != nil {
		return err
	}
	name, ok := findPositionBlob(files, position)
	if !ok {
		return fmt.Errorf("%s/%s/%s: %w", TempRoot, tempID, position, models.ErrNotFound)
	}
	return e.movePosition(ctx, orderID, position, path.Join(TempRoot, tempID, name))
}

func (e *MigrationEngine) listNamespace(ctx context.Context, tempID string) ([]models.BlobObject, error) {
	folder := path.Join(TempRoot, tempID)
	files, err := e.blobs.List(ctx, folder, models.ListOptions{Limit: maxBlobsPerFolder})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", folder, err)
	}
	return files, nil
}

func (e *MigrationEngine) presentPositions(ctx context.Context, orderID uuid.UUID) (map[models.Position]bool, error) {
	images, err := e.images.ListOrderImages(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order images: %w", err)
	}
	present := make(map[models.Position]bool, len(images))
	for _, img := range images {
		present[img.Position] = true
	}
	return present, nil
}

// movePosition copies one temp blob to its final path, records it and deletes
// the temp original. It returns errPositionRecorded without touching any blob
// when the order already has the position.
func (e *MigrationEngine) movePosition(ctx context.Context, orderID uuid.UUID, position models.Position, tempPath string) error {
	exists, err := e.images.ImageExists(ctx, orderID, position)
	if err != nil {
		return fmt.Errorf("check image: %w", err)
	}
	if exists {
		return errPositionRecorded
	}

	data, err := e.blobs.Download(ctx, tempPath)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	finalPath := FinalPath(orderID, position)
	if err := e.blobs.Upload(ctx, finalPath, data, finalContentType, false); err != nil {
		// A prior run may have copied the blob and crashed before recording it.
		if !errors.Is(err, models.ErrAlreadyExists) {
			return fmt.Errorf("upload: %w", err)
		}
	}

	err = e.images.CreateOrderImage(ctx, &models.OrderImage{
		OrderID:  orderID,
		ImageURL: e.blobs.PublicURL(finalPath),
		Position: position,
	})
	if errors.Is(err, models.ErrAlreadyExists) {
		return errPositionRecorded
	}
	if err != nil {
		return fmt.Errorf("record image: %w", err)
	}

	if err := e.blobs.Remove(ctx, tempPath); err != nil {
		// Copy and record already succeeded; the sweeper reclaims the leftover.
		e.logger.Warn("migration: temp delete failed",
			zap.String("path", tempPath), zap.Error(err))
	}
	return nil
}

func findPositionBlob(blobs []models.BlobObject, position models.Position) (string, bool) {
	for _, b := range blobs {
		if b.IsFolder {
			continue
		}
		if strings.HasPrefix(b.Name, string(position)) {
			return b.Name, true
		}
	}
	return "", false
}
