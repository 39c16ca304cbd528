package minio

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/hupe1980/splatgo/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("network")))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "model/gltf-binary", contentType("out/a.glb"))
	assert.Equal(t, "model/gltf+json", contentType("a.gltf"))
	assert.Equal(t, "application/octet-stream", contentType("a.ply"))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY", "env-access")
	t.Setenv("MINIO_SECRET_KEY", "env-secret")

	cfg := ConfigFromEnv(Config{AccessKey: "flag-access"})
	assert.Equal(t, "flag-access", cfg.AccessKey)
	assert.Equal(t, "env-secret", cfg.SecretKey)
}

func TestStore_InvalidName(t *testing.T) {
	store, err := New("localhost:9000", Config{Bucket: "b"})
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "")
	assert.ErrorIs(t, err, blobstore.ErrInvalidName)
	assert.ErrorIs(t, store.Put(context.Background(), "/", nil), blobstore.ErrInvalidName)
}

// TestMinioStore_Integration requires a running MinIO instance at
// MINIO_ENDPOINT.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set")
	}

	cfg := ConfigFromEnv(Config{Bucket: "splatgo-test", Prefix: "it/"})
	store, err := New(endpoint, cfg)
	require.NoError(t, err)

	ctx := context.Background()
	exists, err := store.client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		t.Skipf("MinIO not available: %v", err)
	}
	if !exists {
		require.NoError(t, store.client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}))
	}

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "scene.glb", data))

	blob, err := store.Open(ctx, "scene.glb")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), blob.Size())

	got, err := blobstore.ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	buf := make([]byte, 5)
	n, err := blob.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(buf[:n]))
	require.NoError(t, blob.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "scene.glb")

	require.NoError(t, store.Delete(ctx, "scene.glb"))
	_, err = store.Open(ctx, "scene.glb")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
