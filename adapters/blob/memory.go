package blob

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"degpredict/ports"
)

type memoryEntry struct {
	info ports.ArtifactInfo
	data []byte
}

// Memory keeps artifacts in process memory.
type Memory struct {
	mu   sync.RWMutex
	objs map[string]memoryEntry
}

var _ ports.ArtifactStore = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{objs: make(map[string]memoryEntry)} }

// Driver returns "memory".
func (s *Memory) Driver() string { return DriverMemory }

// Put stores a new artifact; errors if key exists.
func (s *Memory) Put(_ context.Context, key string, r io.Reader, opts ports.PutOptions) (ports.ArtifactInfo, error) {
	if _, err := sanitizeKey(key); err != nil {
		return ports.ArtifactInfo{}, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return ports.ArtifactInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objs[key]; exists {
		return ports.ArtifactInfo{}, alreadyExists(key)
	}
	sum := sha256.Sum256(b)
	info := ports.ArtifactInfo{
		Key:          key,
		Size:         int64(len(b)),
		ContentType:  opts.ContentType,
		ETag:         hex.EncodeToString(sum[:]),
		Metadata:     cloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}
	s.objs[key] = memoryEntry{info: info, data: b}
	return info, nil
}

// Get returns metadata and a reader over a copy of the content.
func (s *Memory) Get(_ context.Context, key string) (ports.ArtifactInfo, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return ports.ArtifactInfo{}, nil, notFound(key)
	}
	data := append([]byte(nil), obj.data...)
	info := obj.info
	info.Metadata = cloneMetadata(info.Metadata)
	return info, io.NopCloser(bytes.NewReader(data)), nil
}

// Head returns metadata only.
func (s *Memory) Head(_ context.Context, key string) (ports.ArtifactInfo, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return ports.ArtifactInfo{}, notFound(key)
	}
	info := obj.info
	info.Metadata = cloneMetadata(info.Metadata)
	return info, nil
}

// Delete removes the artifact, reporting whether it existed.
func (s *Memory) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	delete(s.objs, key)
	return ok, nil
}

// List returns artifacts under prefix sorted by key.
func (s *Memory) List(_ context.Context, prefix string) ([]ports.ArtifactInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ports.ArtifactInfo, 0, len(s.objs))
	for k, v := range s.objs {
		if strings.HasPrefix(k, prefix) {
			info := v.info
			info.Metadata = cloneMetadata(info.Metadata)
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
