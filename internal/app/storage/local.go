package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"punkspace/internal/pkg/logx"
	"punkspace/internal/pkg/randx"
)

// localStore writes uploads into a directory that the HTTP server exposes under URLPath.
type localStore struct {
	dir     string
	urlPath string
}

func newLocalStore(cfg ServiceConfig) (*localStore, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %q: %w", cfg.UploadDir, err)
	}

	return &localStore{
		dir:     cfg.UploadDir,
		urlPath: "/" + strings.Trim(cfg.URLPath, "/"),
	}, nil
}

// Upload writes body to a new file named key. Existing files are never overwritten.
func (s *localStore) Upload(ctx context.Context, key string, _ string, body io.Reader) (string, error) {
	if !randx.IsUploadName(key) {
		return "", fmt.Errorf("invalid upload key %q", key)
	}

	path := filepath.Join(s.dir, key)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	_, copyErr := io.Copy(f, readerWithContext(ctx, body))
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			logx.Warn("Failed to remove partial upload", "path", path, "error", rmErr.Error())
		}
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	return s.urlPath + "/" + key, nil
}

func (s *localStore) Owns(ref string) bool {
	return ownsUnder(s.urlPath, ref)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// readerWithContext aborts a copy once ctx is cancelled.
func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
