package blobstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePresignAndRemove(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	putURL, err := store.PresignPut(ctx, "grids/1/a b.txt", "text/plain", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(putURL, "memory://blobs/"))
	assert.Contains(t, putURL, "method=PUT")
	assert.True(t, store.Has("grids/1/a b.txt"))

	getURL, err := store.PresignGet(ctx, "grids/1/a b.txt", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, getURL, "expires=60")

	require.NoError(t, store.Remove(ctx, "grids/1/a b.txt"))
	assert.False(t, store.Has("grids/1/a b.txt"))
}

func TestMemoryStoreRejectsEmptyKey(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.PresignPut(context.Background(), "", "", time.Minute)
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, store.Remove(context.Background(), ""), ErrInvalidKey)
}
