// Package storage keeps attachment payloads outside the database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrObjectNotFound = errors.New("object not found")

type Client interface {
	UploadFile(ctx context.Context, key string, file io.Reader, contentType string, size int64) (*UploadResult, error)
	DownloadFile(ctx context.Context, key string) ([]byte, error)
	DeleteFile(ctx context.Context, key string) error
	GetFileURL(key string) string
}

type UploadResult struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// GenerateFileKey builds a unique key under prefix keeping the file extension.
func GenerateFileKey(prefix, originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	return fmt.Sprintf("%s/%d-%s%s", strings.Trim(prefix, "/"), time.Now().Unix(), uuid.New().String(), ext)
}

// GetContentType maps a filename extension to a MIME type, falling back to
// application/octet-stream.
func GetContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}
