package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"schuppenweg-backend/internal/models"
	"schuppenweg-backend/internal/observability"
	"schuppenweg-backend/internal/services"
)

type TempUploader interface {
	Upload(ctx context.Context, storagePath string, data []byte, contentType string, upsert bool) error
	PublicURL(storagePath string) string
}

type UploadHandler struct {
	blobs  TempUploader
	logger *zap.Logger
}

func NewUploadHandler(blobs TempUploader, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		blobs:  blobs,
		logger: observability.OrNop(logger),
	}
}

// UploadTempImage godoc
// @Summary     Upload a photo before payment
// @Description Stores the photo under temp/{tempId}/{position}.{ext}. Re-uploading a position replaces it.
// @Tags        upload
// @Accept      multipart/form-data
// @Produce     json
// @Param       image    formData file   true "Photo"
// @Param       position formData string true "front, back, left, right or top"
// @Param       tempId   formData string true "Client upload session id"
// @Success     200 {object} models.TempUploadResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     429 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/upload-temp-image [post]
func (h *UploadHandler) UploadTempImage(c *gin.Context) {
	fh, err := c.FormFile("image")
	tempID := strings.TrimSpace(c.PostForm("tempId"))
	rawPosition := c.PostForm("position")
	if err != nil || tempID == "" || strings.TrimSpace(rawPosition) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Missing required fields"})
		return
	}

	if !validTempID(tempID) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid tempId"})
		return
	}
	position, err := parsePosition(rawPosition)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid position", Message: err.Error()})
		return
	}

	data, contentType, err := readImage(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid image", Message: err.Error()})
		return
	}

	storagePath := services.TempPath(tempID, position, imageExt(fh.Filename))
	if err := h.blobs.Upload(c.Request.Context(), storagePath, data, contentType, true); err != nil {
		h.logger.Error("temp upload failed", zap.String("path", storagePath), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to upload image"})
		return
	}

	c.JSON(http.StatusOK, models.TempUploadResponse{
		Success:  true,
		ImageURL: h.blobs.PublicURL(storagePath),
		Position: string(position),
	})
}
