// Package blob stores run artifacts on the local filesystem, in memory or in
// an S3-compatible bucket.
package blob

import (
	"context"
	"fmt"
	"strings"

	"degpredict/domain/core"
	"degpredict/internal/config"
	"degpredict/ports"
)

// Driver identifies a storage backend.
const (
	DriverFilesystem = "fs"     // local filesystem (default)
	DriverS3         = "s3"     // S3 / MinIO compatible
	DriverMemory     = "memory" // in-memory (tests, demo)
)

// Open selects an ArtifactStore from configuration.
func Open(ctx context.Context, cfg config.BlobConfig) (ports.ArtifactStore, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			PathStyle:       cfg.S3PathStyle,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
		})
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// sanitizeKey rejects empty, absolute and traversing keys.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	return key, nil
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", core.ErrArtifactNotFound, key)
}

func alreadyExists(key string) error {
	return fmt.Errorf("artifact %s already exists", key)
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
