package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

func vec(id string, dense ...float32) *domain.VectorRecord {
	return &domain.VectorRecord{
		ID:      id,
		Content: "content " + id,
		Meta:    domain.VectorMeta{FileName: "/docs/" + id + ".md", ContentType: domain.ContentTypeText},
		Embedding: domain.Embedding{
			Dense:  dense,
			Sparse: map[uint32]float32{1: 1},
		},
	}
}

func TestVectorStore_InsertAndGet(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	n, err := store.Insert(ctx, vec("a", 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, _ = store.Insert(ctx, vec("b", 0, 1))

	got, err := store.Get(ctx, []string{"b", "missing", "a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, "/docs/a.md", got[1].Meta.FileName)
}

func TestVectorStore_Insert_Replaces(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	_, _ = store.Insert(ctx, vec("a", 1, 0))
	rec := vec("a", 0, 1)
	rec.Content = "new"
	_, _ = store.Insert(ctx, rec)

	assert.Equal(t, 1, store.Len())
	got, _ := store.Get(ctx, []string{"a"})
	assert.Equal(t, "new", got[0].Content)
}

func TestVectorStore_Insert_Invalid(t *testing.T) {
	store := NewVectorStore()
	_, err := store.Insert(context.Background(), &domain.VectorRecord{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVectorStore_Delete(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()
	_, _ = store.Insert(ctx, vec("a", 1))
	_, _ = store.Insert(ctx, vec("b", 1))

	n, err := store.Delete(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, store.Len())

	hits, err := store.Search(ctx, domain.SearchQuery{Dense: []float32{1}}, domain.SearchParams{Limit: 10, DenseWeight: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].Record.ID)
}

func TestVectorStore_Search_RanksByHybridScore(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()
	_, _ = store.Insert(ctx, vec("far", -1, 0))
	_, _ = store.Insert(ctx, vec("near", 1, 0))
	_, _ = store.Insert(ctx, vec("mid", 0, 1))

	hits, err := store.Search(ctx,
		domain.SearchQuery{Dense: []float32{1, 0}, Sparse: map[uint32]float32{1: 1}},
		domain.SearchParams{Limit: 2, SparseWeight: 0.7, DenseWeight: 1.0},
	)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].Record.ID)
	assert.Equal(t, "mid", hits[1].Record.ID)
}

func TestVectorStore_Get_ReturnsCopies(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()
	_, _ = store.Insert(ctx, vec("a", 1, 2))

	got, _ := store.Get(ctx, []string{"a"})
	got[0].Embedding.Dense[0] = 99

	again, _ := store.Get(ctx, []string{"a"})
	assert.Equal(t, float32(1), again[0].Embedding.Dense[0])
}
