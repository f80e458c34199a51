// Package fingerprint computes the fast, non-cryptographic content hashes
// used for chunk IDs and file change detection.
package fingerprint

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Bytes returns the 64-bit xxHash of b as 16 lower-case hex digits.
func Bytes(b []byte) string {
	return format(xxhash.Sum64(b))
}

// ChunkID returns the content-addressed ID of a chunk: the hash of its
// content followed by its extra description.
func ChunkID(content, extraDescription []byte) string {
	d := xxhash.New()
	_, _ = d.Write(content)
	_, _ = d.Write(extraDescription)
	return format(d.Sum64())
}

// Term returns a 32-bit index for a lexical term.
func Term(term string) uint32 {
	return uint32(xxhash.Sum64String(term))
}

func format(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}
