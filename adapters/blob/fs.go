package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"degpredict/ports"
)

const metaSuffix = ".meta"

// Filesystem stores artifacts under a local directory. Each artifact has a
// JSON sidecar (<file>.meta) holding content type, metadata and etag.
type Filesystem struct {
	root string
}

var _ ports.ArtifactStore = (*Filesystem)(nil)

type metaFile struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ETag        string            `json:"etag"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewFilesystem returns a store rooted at root, creating it if needed.
func NewFilesystem(root string) (*Filesystem, error) {
	if root == "" {
		root = "./results"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Filesystem{root: root}, nil
}

// Driver returns "fs".
func (f *Filesystem) Driver() string { return DriverFilesystem }

// Root returns the directory artifacts are written under.
func (f *Filesystem) Root() string { return f.root }

func (f *Filesystem) pathFor(key string) (dataPath, metaPath string, err error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	dataPath = filepath.Join(f.root, filepath.FromSlash(k))
	return dataPath, dataPath + metaSuffix, nil
}

// Put streams r to a temp file and renames it into place.
func (f *Filesystem) Put(ctx context.Context, key string, r io.Reader, opts ports.PutOptions) (ports.ArtifactInfo, error) {
	dataPath, metaPath, err := f.pathFor(key)
	if err != nil {
		return ports.ArtifactInfo{}, err
	}
	if _, err := os.Stat(dataPath); err == nil {
		return ports.ArtifactInfo{}, alreadyExists(key)
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return ports.ArtifactInfo{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return ports.ArtifactInfo{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		_ = tmp.Close()
		return ports.ArtifactInfo{}, err
	}
	if err := tmp.Close(); err != nil {
		return ports.ArtifactInfo{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return ports.ArtifactInfo{}, err
	}

	now := time.Now().UTC()
	mf := metaFile{
		ContentType: opts.ContentType,
		Metadata:    cloneMetadata(opts.Metadata),
		ETag:        hex.EncodeToString(h.Sum(nil)),
		Size:        size,
		CreatedAt:   now,
	}
	if err := writeMeta(metaPath, mf); err != nil {
		return ports.ArtifactInfo{}, err
	}
	return mf.info(key), nil
}

// Get opens the artifact for reading.
func (f *Filesystem) Get(ctx context.Context, key string) (ports.ArtifactInfo, io.ReadCloser, error) {
	dataPath, metaPath, err := f.pathFor(key)
	if err != nil {
		return ports.ArtifactInfo{}, nil, err
	}
	file, err := os.Open(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return ports.ArtifactInfo{}, nil, notFound(key)
	}
	if err != nil {
		return ports.ArtifactInfo{}, nil, err
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		_ = file.Close()
		return ports.ArtifactInfo{}, nil, err
	}
	return mf.info(key), file, nil
}

// Head reads the sidecar only.
func (f *Filesystem) Head(ctx context.Context, key string) (ports.ArtifactInfo, error) {
	_, metaPath, err := f.pathFor(key)
	if err != nil {
		return ports.ArtifactInfo{}, err
	}
	mf, err := readMeta(metaPath)
	if errors.Is(err, fs.ErrNotExist) {
		return ports.ArtifactInfo{}, notFound(key)
	}
	if err != nil {
		return ports.ArtifactInfo{}, err
	}
	return mf.info(key), nil
}

// Delete removes the artifact and its sidecar.
func (f *Filesystem) Delete(ctx context.Context, key string) (bool, error) {
	dataPath, metaPath, err := f.pathFor(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(dataPath); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := os.Remove(dataPath); err != nil {
		return false, err
	}
	_ = os.Remove(metaPath)
	return true, nil
}

// List walks the root collecting sidecars whose key has prefix.
func (f *Filesystem) List(ctx context.Context, prefix string) ([]ports.ArtifactInfo, error) {
	var infos []ports.ArtifactInfo
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, metaSuffix) {
			return nil
		}
		rel, err := filepath.Rel(f.root, strings.TrimSuffix(path, metaSuffix))
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		mf, err := readMeta(path)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		infos = append(infos, mf.info(key))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (mf metaFile) info(key string) ports.ArtifactInfo {
	return ports.ArtifactInfo{
		Key:          key,
		Size:         mf.Size,
		ContentType:  mf.ContentType,
		ETag:         mf.ETag,
		Metadata:     cloneMetadata(mf.Metadata),
		LastModified: mf.CreatedAt,
	}
}

func writeMeta(path string, mf metaFile) error {
	b, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func readMeta(path string) (metaFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return metaFile{}, err
	}
	var mf metaFile
	if err := json.Unmarshal(b, &mf); err != nil {
		return metaFile{}, err
	}
	return mf, nil
}
