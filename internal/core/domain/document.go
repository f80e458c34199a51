package domain

import "time"

// DocumentRecord is the bookkeeping entry for one ingested source file.
// A record with no chunk IDs means the file was processed and held
// nothing indexable, not that it was never processed.
type DocumentRecord struct {
	// Name is the unique key: the cleaned absolute path of the source file.
	Name string

	// ChunkIDs are the IDs of the chunks stored for the file, in order.
	ChunkIDs []string

	// CreatedAt is when this version of the file was ingested.
	CreatedAt time.Time

	// ContentHash is the fingerprint of the last successfully processed bytes.
	ContentHash string
}
