package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"degpredict/domain/core"
	"degpredict/internal/config"
	"degpredict/ports"
)

func stores(t *testing.T) map[string]ports.ArtifactStore {
	t.Helper()
	fsStore, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	return map[string]ports.ArtifactStore{
		DriverFilesystem: fsStore,
		DriverMemory:     NewMemory(),
		DriverS3:         newMockS3(t),
	}
}

func TestArtifactStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, name, store.Driver())

			info, err := store.Put(ctx, "runs/r1/predictions.csv", strings.NewReader("gene_symbol\nITPR1\n"),
				ports.PutOptions{ContentType: "text/csv", Metadata: map[string]string{"run": "r1"}})
			require.NoError(t, err)
			assert.Equal(t, int64(18), info.Size)
			assert.NotEmpty(t, info.ETag)

			_, err = store.Put(ctx, "runs/r1/predictions.csv", strings.NewReader("x"), ports.PutOptions{})
			assert.Error(t, err, "keys are create-only")

			got, rc, err := store.Get(ctx, "runs/r1/predictions.csv")
			require.NoError(t, err)
			body, err := io.ReadAll(rc)
			rc.Close()
			require.NoError(t, err)
			assert.Equal(t, "gene_symbol\nITPR1\n", string(body))
			assert.Equal(t, "text/csv", got.ContentType)

			head, err := store.Head(ctx, "runs/r1/predictions.csv")
			require.NoError(t, err)
			assert.Equal(t, int64(18), head.Size)

			_, err = store.Head(ctx, "runs/r1/missing.csv")
			assert.ErrorIs(t, err, core.ErrArtifactNotFound)
			_, _, err = store.Get(ctx, "runs/r1/missing.csv")
			assert.True(t, core.IsNotFoundError(err))

			_, err = store.Put(ctx, "runs/r1/report.html", strings.NewReader("<html></html>"), ports.PutOptions{ContentType: "text/html"})
			require.NoError(t, err)
			_, err = store.Put(ctx, "runs/r2/predictions.csv", strings.NewReader("x"), ports.PutOptions{})
			require.NoError(t, err)

			list, err := store.List(ctx, "runs/r1/")
			require.NoError(t, err)
			keys := make([]string, len(list))
			for i, l := range list {
				keys[i] = l.Key
			}
			assert.Equal(t, []string{"runs/r1/predictions.csv", "runs/r1/report.html"}, keys)

			deleted, err := store.Delete(ctx, "runs/r2/predictions.csv")
			require.NoError(t, err)
			assert.True(t, deleted)
			deleted, err = store.Delete(ctx, "runs/r2/predictions.csv")
			require.NoError(t, err)
			assert.False(t, deleted)

			_, err = store.Put(ctx, "../escape", strings.NewReader("x"), ports.PutOptions{})
			assert.Error(t, err)
			_, err = store.Put(ctx, "", strings.NewReader("x"), ports.PutOptions{})
			assert.Error(t, err)
		})
	}
}

func TestFilesystemKeepsMetadata(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	_, err = store.Put(ctx, "a/b.json", strings.NewReader("{}"), ports.PutOptions{Metadata: map[string]string{"k": "v"}})
	require.NoError(t, err)

	// a fresh store over the same root sees the sidecar
	reopened, err := NewFilesystem(store.Root())
	require.NoError(t, err)
	info, err := reopened.Head(ctx, "a/b.json")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k": "v"}, info.Metadata)
}

func TestMemoryReturnsCopies(t *testing.T) {
	store := NewMemory()
	md := map[string]string{"k": "v"}
	_, err := store.Put(context.Background(), "k", strings.NewReader("x"), ports.PutOptions{Metadata: md})
	require.NoError(t, err)
	md["k"] = "changed"
	info, err := store.Head(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", info.Metadata["k"])
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.BlobConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, s.Driver())

	s, err = Open(ctx, config.BlobConfig{Driver: "fs", FSRoot: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.Driver())

	_, err = Open(ctx, config.BlobConfig{Driver: "s3"})
	assert.Error(t, err, "bucket required")

	_, err = Open(ctx, config.BlobConfig{Driver: "gcs"})
	assert.Error(t, err)
}
