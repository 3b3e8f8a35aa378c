package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type LocalProvider struct {
	basePath string
}

func NewLocalProvider(basePath string) *LocalProvider {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		slog.Error("Failed to ensure local storage directory exists", "path", basePath, "error", err)
	}
	return &LocalProvider{
		basePath: basePath,
	}
}

func (p *LocalProvider) Store(ctx context.Context, key string, r io.Reader) (string, error) {
	fullPath, err := p.path(key)
	if err != nil {
		return "", err
	}

	// Ensure subdirectories exist if key contains them
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}

	_, copyErr := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(fullPath)
		if copyErr != nil {
			return "", fmt.Errorf("failed to write file %s: %w", fullPath, copyErr)
		}
		return "", fmt.Errorf("failed to close file %s: %w", fullPath, closeErr)
	}

	slog.Info("Local file write completed", "path", fullPath)
	return p.URL(key), nil
}

func (p *LocalProvider) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := p.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(fullPath)
}

// URL returns a file:// URL of the absolute object path.
func (p *LocalProvider) URL(key string) string {
	fullPath := filepath.Join(p.basePath, key)
	abs, _ := filepath.Abs(fullPath)
	return fmt.Sprintf("file://%s", abs)
}

// path resolves key below the base directory and rejects keys escaping it.
func (p *LocalProvider) path(key string) (string, error) {
	fullPath := filepath.Join(p.basePath, key)
	rel, err := filepath.Rel(p.basePath, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage key %q escapes base directory", key)
	}
	return fullPath, nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
