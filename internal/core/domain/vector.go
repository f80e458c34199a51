package domain

// Embedding holds the dense and sparse vectors for one text.
type Embedding struct {
	// Dense is the semantic embedding.
	Dense []float32

	// Sparse maps lexical term indices to weights.
	Sparse map[uint32]float32
}

// VectorMeta is the side-channel stored alongside a vector record.
type VectorMeta struct {
	FileName     string      `json:"file_name"`
	ContentType  ContentType `json:"content_type"`
	ContentURL   string      `json:"content_url,omitempty"`
	TableContent string      `json:"table_content,omitempty"`
}

// VectorRecord is a stored chunk, keyed by the chunk ID.
type VectorRecord struct {
	// ID is the chunk ID.
	ID string

	// Content is the chunk's display text.
	Content string

	// Meta carries file name, content type and optional asset/table data.
	Meta VectorMeta

	// Embedding holds the dense and sparse vectors.
	Embedding Embedding
}

// SearchQuery is a hybrid search request against the vector store.
type SearchQuery struct {
	Dense  []float32
	Sparse map[uint32]float32
}

// SearchParams tunes a hybrid search.
type SearchParams struct {
	// Limit is the maximum number of hits.
	Limit int

	// SparseWeight weights the lexical ranking.
	SparseWeight float64

	// DenseWeight weights the semantic ranking.
	DenseWeight float64
}

// VectorHit is a ranked search result.
type VectorHit struct {
	Record VectorRecord
	Score  float64
}
