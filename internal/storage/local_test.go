package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledgerelay/relay/internal/service"
)

// Both stores back the ingestion layer's blob seam.
var (
	_ service.BlobStore = (*LocalStore)(nil)
	_ service.BlobStore = (*S3Client)(nil)
)

func TestLocalStore_RoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	err = store.Put(ctx, "project-1/doc-1_readme.md", []byte("# hello"))
	require.NoError(t, err)

	data, err := store.Get(ctx, "project-1/doc-1_readme.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("# hello"), data)

	require.NoError(t, store.Delete(ctx, "project-1/doc-1_readme.md"))
	_, err = store.Get(ctx, "project-1/doc-1_readme.md")
	assert.Error(t, err)
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	err = store.Put(context.Background(), "../escape", []byte("nope"))
	assert.Error(t, err)

	err = store.Put(context.Background(), "/abs/path", []byte("nope"))
	assert.Error(t, err)
}

func TestLocalStore_DeleteMissingIsNoop(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete(context.Background(), "does/not/exist"))
}
