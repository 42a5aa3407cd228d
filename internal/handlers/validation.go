package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"

	"schuppenweg-backend/internal/models"
)

const maxImageBytes = 15 << 20

var tempIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// validTempID rejects anything that could escape temp/{tempId}/ in a blob key.
func validTempID(tempID string) bool {
	return tempIDPattern.MatchString(tempID)
}

func parsePosition(raw string) (models.Position, error) {
	p := models.Position(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("position must be one of %v", models.Positions)
	}
	return p, nil
}

// imageExt returns the lower-case extension of filename without the dot,
// defaulting to jpg.
func imageExt(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" || !tempIDPattern.MatchString(ext) || len(ext) > 5 {
		return "jpg"
	}
	return ext
}

func readImage(fh *multipart.FileHeader) ([]byte, string, error) {
	if fh.Size > maxImageBytes {
		return nil, "", fmt.Errorf("%s exceeds %d bytes", fh.Filename, maxImageBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("%s exceeds %d bytes", fh.Filename, maxImageBytes)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}
