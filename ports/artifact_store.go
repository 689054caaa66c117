package ports

import (
	"context"
	"io"
	"time"
)

// ArtifactInfo describes a stored artifact.
type ArtifactInfo struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// PutOptions configures an artifact write.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ArtifactStore persists run outputs (CSV, XLSX, HTML, JSON) under string keys.
// Implementations: filesystem, in-memory and S3-compatible object storage.
type ArtifactStore interface {
	Driver() string
	// Put writes a new artifact; writing an existing key is an error.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (ArtifactInfo, error)
	Get(ctx context.Context, key string) (ArtifactInfo, io.ReadCloser, error)
	Head(ctx context.Context, key string) (ArtifactInfo, error)
	Delete(ctx context.Context, key string) (bool, error)
	// List returns artifacts whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]ArtifactInfo, error)
}
