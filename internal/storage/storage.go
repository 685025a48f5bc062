// Package storage writes export files to an object store bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/articlehub/apiserver/config"
)

// UnknownSize tells Put to stream r until EOF.
const UnknownSize int64 = -1

// Bucket is one bucket of an object store.
type Bucket interface {
	EnsureBucket(ctx context.Context) error
	// Put uploads r under key. size may be UnknownSize.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Name() string
	Close() error
}

// Open connects to the bucket selected by cfg.Backend: minio, gcs or
// memory.
func Open(ctx context.Context, cfg config.ExportConfig) (Bucket, error) {
	switch strings.ToLower(cfg.Backend) {
	case "minio", "":
		return NewMinioBucket(cfg.Minio)
	case "gcs":
		return NewGCSBucket(ctx, cfg.GCS)
	case "memory":
		return NewMemoryBucket("memory"), nil
	default:
		return nil, fmt.Errorf("unsupported export backend %q", cfg.Backend)
	}
}
