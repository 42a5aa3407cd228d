package services

import (
	"context"
	"fmt"
	"path"
	"sort"
	"time"

	"go.uber.org/zap"
	"schuppenweg-backend/internal/models"
)

const (
	tempFolderLimit   = 1000
	maxBlobsPerFolder = 100
)

// tempNamespace is one temp/{id} folder with the files directly under it.
type tempNamespace struct {
	ID     string
	Newest time.Time
	Files  []models.BlobObject
}

func (n tempNamespace) prefix() string {
	return path.Join(TempRoot, n.ID)
}

// listTempNamespaces lists every folder under temp/ together with its files.
// Storage reports folders without timestamps, so Newest is taken from the
// newest file. Folders whose listing fails are logged and left out.
func listTempNamespaces(ctx context.Context, blobs BlobStore, logger *zap.Logger) ([]tempNamespace, error) {
	folders, err := blobs.List(ctx, TempRoot, models.ListOptions{
		Limit:  tempFolderLimit,
		SortBy: "name",
	})
	if err != nil {
		return nil, fmt.Errorf("list temp namespaces: %w", err)
	}

	namespaces := make([]tempNamespace, 0, len(folders))
	for _, folder := range folders {
		if !folder.IsFolder {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ns := tempNamespace{ID: folder.Name}
		objects, err := blobs.List(ctx, ns.prefix(), models.ListOptions{Limit: maxBlobsPerFolder})
		if err != nil {
			logger.Warn("list temp namespace failed", zap.String("temp_id", folder.Name), zap.Error(err))
			continue
		}
		for _, obj := range objects {
			if obj.IsFolder {
				continue
			}
			if obj.CreatedAt.After(ns.Newest) {
				ns.Newest = obj.CreatedAt
			}
			ns.Files = append(ns.Files, obj)
		}
		namespaces = append(namespaces, ns)
	}
	return namespaces, nil
}

// sortNewestFirst orders namespaces by their newest file, ties by name.
func sortNewestFirst(namespaces []tempNamespace) {
	sort.SliceStable(namespaces, func(i, j int) bool {
		if !namespaces[i].Newest.Equal(namespaces[j].Newest) {
			return namespaces[i].Newest.After(namespaces[j].Newest)
		}
		return namespaces[i].ID < namespaces[j].ID
	})
}
