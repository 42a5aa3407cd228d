package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"schuppenweg-backend/internal/models"
	"schuppenweg-backend/internal/observability"
)

type URLSigner interface {
	SignedURL(ctx context.Context, storagePath string, ttl time.Duration) (string, error)
}

type SignedURLCache interface {
	Get(ctx context.Context, storagePath string) (string, bool, error)
	Set(ctx context.Context, storagePath, signedURL string) error
}

type ImagesHandler struct {
	signer URLSigner
	cache  SignedURLCache
	bucket string
	ttl    time.Duration
	logger *zap.Logger
}

// NewImagesHandler builds the signed URL endpoint. cache may be nil.
func NewImagesHandler(signer URLSigner, cache SignedURLCache, bucket string, ttl time.Duration, logger *zap.Logger) *ImagesHandler {
	return &ImagesHandler{
		signer: signer,
		cache:  cache,
		bucket: bucket,
		ttl:    ttl,
		logger: observability.OrNop(logger),
	}
}

// GetImageURL godoc
// @Summary     Signed URL for a stored photo
// @Description Accepts a storage path or a full public URL of the bucket and returns a URL valid for one hour.
// @Tags        images
// @Produce     json
// @Param       path query string true "Storage path or public URL"
// @Success     200 {object} models.SignedURLResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/get-image-url [get]
func (h *ImagesHandler) GetImageURL(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("path"))
	if raw == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Path is required"})
		return
	}

	storagePath := storagePathFromURL(raw, h.bucket)
	if storagePath == "" || strings.Contains(storagePath, "..") {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid path"})
		return
	}

	ctx := c.Request.Context()
	if h.cache != nil {
		if cached, ok, err := h.cache.Get(ctx, storagePath); err != nil {
			h.logger.Warn("signed url cache read failed", zap.Error(err))
		} else if ok {
			c.JSON(http.StatusOK, models.SignedURLResponse{SignedURL: cached})
			return
		}
	}

	signed, err := h.signer.SignedURL(ctx, storagePath, h.ttl)
	if err != nil {
		h.logger.Error("create signed url failed", zap.String("path", storagePath), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create signed URL"})
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, storagePath, signed); err != nil {
			h.logger.Warn("signed url cache write failed", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, models.SignedURLResponse{SignedURL: signed})
}

// storagePathFromURL strips everything up to "/{bucket}/" so public URLs
// stored on image rows can be passed as-is.
func storagePathFromURL(raw, bucket string) string {
	if bucket != "" {
		marker := "/" + bucket + "/"
		if i := strings.LastIndex(raw, marker); i >= 0 {
			raw = raw[i+len(marker):]
		}
	}
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimLeft(raw, "/")
}
