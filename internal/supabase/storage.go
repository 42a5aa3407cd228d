package supabase

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	storage "github.com/supabase-community/storage-go"
	"schuppenweg-backend/internal/models"
)

type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageClient(supabaseURL, serviceRoleKey, bucket string) (*StorageClient, error) {
	baseURL := strings.TrimRight(supabaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("supabase url is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	client := storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil)

	return &StorageClient{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}, nil
}

func (s *StorageClient) Bucket() string {
	return s.bucket
}

// List returns the entries directly under prefix. Sub-folders are reported
// with IsFolder set and no creation time.
func (s *StorageClient) List(ctx context.Context, prefix string, opts models.ListOptions) ([]models.BlobObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	search := storage.FileSearchOptions{Limit: opts.Limit}
	if opts.SortBy != "" {
		order := "asc"
		if opts.Descending {
			order = "desc"
		}
		search.SortByOptions = storage.SortBy{Column: opts.SortBy, Order: order}
	}

	files, err := s.client.ListFiles(s.bucket, prefix, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	objects := make([]models.BlobObject, 0, len(files))
	for _, f := range files {
		if f.Name == "" || f.Name == ".emptyFolderPlaceholder" {
			continue
		}
		obj := models.BlobObject{Name: f.Name, IsFolder: f.Id == ""}
		if f.CreatedAt != "" {
			if ts, err := time.Parse(time.RFC3339Nano, f.CreatedAt); err == nil {
				obj.CreatedAt = ts
			}
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func (s *StorageClient) Download(ctx context.Context, storagePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.client.DownloadFile(s.bucket, storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", storagePath, err)
	}
	return data, nil
}

// Upload writes data at storagePath. Without upsert an existing object is
// reported as models.ErrAlreadyExists.
func (s *StorageClient) Upload(ctx context.Context, storagePath string, data []byte, contentType string, upsert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.client.UploadFile(s.bucket, storagePath, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		if isDuplicateObject(err) {
			return fmt.Errorf("upload %s: %w", storagePath, models.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to upload %s: %w", storagePath, err)
	}
	return nil
}

func (s *StorageClient) Remove(ctx context.Context, storagePaths ...string) error {
	if len(storagePaths) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.client.RemoveFile(s.bucket, storagePaths); err != nil {
		return fmt.Errorf("failed to remove %v: %w", storagePaths, err)
	}
	return nil
}

func (s *StorageClient) PublicURL(storagePath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
		s.baseURL, s.bucket, storagePath)
}

func (s *StorageClient) SignedURL(ctx context.Context, storagePath string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp, err := s.client.CreateSignedUrl(s.bucket, storagePath, int(ttl.Seconds()))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s: %w", storagePath, err)
	}
	signed := resp.SignedURL
	if strings.HasPrefix(signed, "/") {
		signed = s.baseURL + "/storage/v1" + signed
	}
	return signed, nil
}

func isDuplicateObject(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate")
}
