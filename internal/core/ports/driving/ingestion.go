package driving

import "context"

// IngestionService keeps the stores in step with one source file.
// Calls must be serialised; use a WatchQueue when events arrive concurrently.
type IngestionService interface {
	// Ingest (re)processes the file at path and returns the stored chunk IDs.
	// Returns nil, nil when the file is ignored, empty or unchanged.
	Ingest(ctx context.Context, path string) ([]string, error)

	// Retract removes the file's chunks, assets and record. A path with no
	// record is a no-op.
	Retract(ctx context.Context, path string) error

	// Ignore reports whether path is never ingested or retracted.
	Ignore(path string) bool
}

// WatchQueue serialises ingestion and retraction jobs through one worker.
type WatchQueue interface {
	// Start launches the worker. It stops when ctx is cancelled or Stop is called.
	Start(ctx context.Context)

	// Stop closes intake and waits for queued jobs to drain.
	Stop()

	// SubmitIngest enqueues an ingest job.
	SubmitIngest(ctx context.Context, path string) error

	// SubmitRetract enqueues a retract job.
	SubmitRetract(ctx context.Context, path string) error

	// SubmitRename enqueues a retract of oldPath followed by an ingest of newPath.
	SubmitRename(ctx context.Context, oldPath, newPath string) error

	// Reconcile diffs stored records against the files under root, enqueuing
	// retracts for vanished files and ingests for every current file.
	Reconcile(ctx context.Context, root string) error
}
