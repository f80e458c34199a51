package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytes_Deterministic(t *testing.T) {
	inputs := [][]byte{nil, []byte(""), []byte("hello"), []byte("héllo wörld"), {0x00, 0xff, 0x10}}

	for _, in := range inputs {
		first := Bytes(in)
		assert.Len(t, first, 16)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, Bytes(in))
		}
	}
}

func TestBytes_KnownValue(t *testing.T) {
	// xxh64 of the empty input with seed 0.
	assert.Equal(t, "ef46db3751d8e999", Bytes(nil))
}

func TestBytes_DiffersOnContent(t *testing.T) {
	assert.NotEqual(t, Bytes([]byte("a")), Bytes([]byte("b")))
}

func TestChunkID_IsHashOfConcatenation(t *testing.T) {
	assert.Equal(t, Bytes([]byte("contentdesc")), ChunkID([]byte("content"), []byte("desc")))
	assert.Equal(t, ChunkID([]byte("ab"), []byte("c")), ChunkID([]byte("a"), []byte("bc")))
	assert.Equal(t, Bytes([]byte("text only")), ChunkID([]byte("text only"), nil))
}

func TestChunkID_Deterministic(t *testing.T) {
	id := ChunkID([]byte("table body"), []byte("Table 1"))
	for i := 0; i < 5; i++ {
		assert.Equal(t, id, ChunkID([]byte("table body"), []byte("Table 1")))
	}
}

func TestTerm(t *testing.T) {
	assert.Equal(t, Term("retrieval"), Term("retrieval"))
	assert.NotEqual(t, Term("retrieval"), Term("generation"))
}
