package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalClient stores objects below a directory; used in development.
type LocalClient struct {
	dir     string
	baseURL string
}

func NewLocalClient(dir, baseURL string) (*LocalClient, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads dir: %w", err)
	}
	return &LocalClient{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (l *LocalClient) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(l.dir, clean), nil
}

func (l *LocalClient) UploadFile(ctx context.Context, key string, file io.Reader, contentType string, size int64) (*UploadResult, error) {
	path, err := l.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create object dir: %w", err)
	}

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create local file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return nil, fmt.Errorf("failed to write local file: %w", err)
	}

	return &UploadResult{Key: key, URL: l.GetFileURL(key)}, nil
}

func (l *LocalClient) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	path, err := l.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read local file: %w", err)
	}
	return data, nil
}

func (l *LocalClient) DeleteFile(ctx context.Context, key string) error {
	path, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete local file: %w", err)
	}
	return nil
}

func (l *LocalClient) GetFileURL(key string) string {
	return fmt.Sprintf("%s/uploads/%s", l.baseURL, strings.TrimPrefix(key, "/"))
}
