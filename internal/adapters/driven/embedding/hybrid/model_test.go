package hybrid

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tinyrag/internal/adapters/driven/embedding/lexical"
	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

type mockDense struct {
	vec []float32
	err error
}

func (m *mockDense) Embed(context.Context, string) ([]float32, error) { return m.vec, m.err }
func (m *mockDense) ModelName() string                                { return "mock-embed" }
func (m *mockDense) Ping(context.Context) error                       { return nil }
func (m *mockDense) Close() error                                     { return nil }

func TestModel_Encode(t *testing.T) {
	m := New(&mockDense{vec: []float32{1, 2}}, lexical.NewEncoder())

	emb, err := m.Encode(context.Background(), "quarterly revenue")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, emb.Dense)
	assert.Len(t, emb.Sparse, 2)
	assert.Equal(t, "mock-embed+lexical", m.Name())
}

func TestModel_Encode_SparseOnly(t *testing.T) {
	m := New(nil, lexical.NewEncoder())

	emb, err := m.Encode(context.Background(), "quarterly revenue")
	require.NoError(t, err)
	assert.Nil(t, emb.Dense)
	assert.NotEmpty(t, emb.Sparse)
	assert.Equal(t, "lexical", m.Name())
}

func TestModel_Encode_DenseError(t *testing.T) {
	m := New(&mockDense{err: domain.ErrEmbeddingUnavailable}, lexical.NewEncoder())

	_, err := m.Encode(context.Background(), "x")
	assert.True(t, errors.Is(err, domain.ErrEmbeddingUnavailable))
}

func TestModel_Name_DenseOnly(t *testing.T) {
	assert.Equal(t, "mock-embed", New(&mockDense{}, nil).Name())
}
