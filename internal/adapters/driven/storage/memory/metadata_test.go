package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

func TestMetadataStore_UpsertAndGet(t *testing.T) {
	store := NewMetadataStore()
	ctx := context.Background()

	now := time.Now()
	rec := &domain.DocumentRecord{
		Name:        "/docs/a.md",
		ChunkIDs:    []string{"c1", "c2"},
		CreatedAt:   now,
		ContentHash: "abc",
	}

	n, err := store.Upsert(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.Get(ctx, "/docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, got.ChunkIDs)
	assert.Equal(t, "abc", got.ContentHash)
	assert.True(t, now.Equal(got.CreatedAt))

	// Callers cannot mutate stored state
	got.ChunkIDs[0] = "changed"
	again, _ := store.Get(ctx, "/docs/a.md")
	assert.Equal(t, "c1", again.ChunkIDs[0])
}

func TestMetadataStore_Upsert_Replaces(t *testing.T) {
	store := NewMetadataStore()
	ctx := context.Background()

	_, _ = store.Upsert(ctx, &domain.DocumentRecord{Name: "a", ContentHash: "1"})
	_, _ = store.Upsert(ctx, &domain.DocumentRecord{Name: "a", ContentHash: "2"})

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", got.ContentHash)

	names, _ := store.ListAllNames(ctx)
	assert.Equal(t, []string{"a"}, names)
}

func TestMetadataStore_Upsert_Invalid(t *testing.T) {
	store := NewMetadataStore()
	_, err := store.Upsert(context.Background(), &domain.DocumentRecord{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMetadataStore_Get_NotFound(t *testing.T) {
	store := NewMetadataStore()
	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMetadataStore_Delete(t *testing.T) {
	store := NewMetadataStore()
	ctx := context.Background()
	_, _ = store.Upsert(ctx, &domain.DocumentRecord{Name: "a"})

	n, err := store.Delete(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = store.Delete(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMetadataStore_ListAllNames_Sorted(t *testing.T) {
	store := NewMetadataStore()
	ctx := context.Background()
	for _, name := range []string{"c", "a", "b"} {
		_, _ = store.Upsert(ctx, &domain.DocumentRecord{Name: name})
	}

	names, err := store.ListAllNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestMetadataStore_SharedChunkIDs(t *testing.T) {
	store := NewMetadataStore()
	ctx := context.Background()
	_, _ = store.Upsert(ctx, &domain.DocumentRecord{Name: "a", ChunkIDs: []string{"x", "y", "z"}})
	_, _ = store.Upsert(ctx, &domain.DocumentRecord{Name: "b", ChunkIDs: []string{"y"}})

	shared, err := store.SharedChunkIDs(ctx, "a", []string{"x", "y", "z"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"y": "b"}, shared)

	shared, err = store.SharedChunkIDs(ctx, "b", []string{"y"})
	require.NoError(t, err)
	assert.Equal(t, "a", shared["y"])
}
