// Package storage keeps uploaded avatars and generated report files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/iliyamo/fintrack/internal/config"
)

// ErrNotFound is returned by Open for a missing key.
var ErrNotFound = errors.New("storage: object not found")

// FileStore is a flat key/value blob store.  Keys use forward slashes
// ("avatars/<user>/<file>").
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	URL(key string) string
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (FileStore, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocal(cfg.LocalDir, "/uploads")
	case "s3":
		return NewS3(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// cleanKey rejects keys that would escape the store root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." || strings.HasPrefix(k, "..") {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return k, nil
}
