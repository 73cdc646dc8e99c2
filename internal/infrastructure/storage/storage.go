// Package storage provides blob storage backends for generated documents.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/infinity-9427/invoicing/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrObjectNotFound is returned by reads of a missing key
var ErrObjectNotFound = errors.New("object not found")

// ErrInvalidKey is returned for empty or escaping keys
var ErrInvalidKey = errors.New("invalid storage key")

// BlobStorage stores opaque objects under slash-separated keys
type BlobStorage interface {
	// Put writes data under key, replacing any previous object
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Exists reports whether key holds an object
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes key. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error
	// URL returns a URL clients can fetch the object from
	URL(ctx context.Context, key string) (string, error)
}

// Reader is implemented by backends that can stream object contents back
type Reader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Sizer is implemented by backends that can report object sizes
type Sizer interface {
	Size(ctx context.Context, key string) (int64, error)
}

// New builds the backend selected by cfg.Driver
func New(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (BlobStorage, error) {
	switch cfg.Driver {
	case "", "local":
		return NewFileSystemStorage(cfg.LocalRoot, cfg.PublicBaseURL, logger)
	case "s3":
		return NewS3Storage(ctx, cfg, WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// cleanKey normalizes key and rejects absolute or parent-relative keys
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", ErrInvalidKey
		}
	}
	return path.Clean(key), nil
}
