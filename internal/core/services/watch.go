package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driving"
	"github.com/custodia-labs/tinyrag/internal/logger"
)

// Ensure WatchQueue implements the interface.
var _ driving.WatchQueue = (*WatchQueue)(nil)

// DefaultQueueSize is the default job channel capacity.
const DefaultQueueSize = 1024

type jobKind int

const (
	jobIngest jobKind = iota
	jobRetract
)

func (k jobKind) String() string {
	if k == jobRetract {
		return "retract"
	}
	return "ingest"
}

type job struct {
	kind jobKind
	path string
}

// WatchQueue serialises ingestion and retraction through exactly one
// worker goroutine draining a FIFO channel. The store mutations made by
// the Ingestor are not safe under concurrent writers, so the single
// worker is the only concurrency control for all writes.
type WatchQueue struct {
	ingestion driving.IngestionService
	metadata  driven.MetadataStore
	jobs      chan job

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

// NewWatchQueue creates a queue feeding ingestion. Capacity bounds the
// number of pending jobs; producers block when it is reached.
func NewWatchQueue(ingestion driving.IngestionService, metadata driven.MetadataStore, capacity int) *WatchQueue {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	return &WatchQueue{
		ingestion: ingestion,
		metadata:  metadata,
		jobs:      make(chan job, capacity),
		done:      make(chan struct{}),
	}
}

// Start launches the worker. Calling Start more than once has no effect.
func (q *WatchQueue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true
	go q.work(ctx)
}

// Stop closes intake and waits for the worker to drain queued jobs.
// The worker exits early if its context is cancelled.
func (q *WatchQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	started := q.started
	q.mu.Unlock()

	if started {
		<-q.done
	}
}

// SubmitIngest enqueues an ingest job. Ignored paths are dropped.
func (q *WatchQueue) SubmitIngest(ctx context.Context, path string) error {
	return q.submit(ctx, job{kind: jobIngest, path: path})
}

// SubmitRetract enqueues a retract job. Ignored paths are dropped.
func (q *WatchQueue) SubmitRetract(ctx context.Context, path string) error {
	return q.submit(ctx, job{kind: jobRetract, path: path})
}

// SubmitRename enqueues a retract of oldPath followed by an ingest of newPath.
func (q *WatchQueue) SubmitRename(ctx context.Context, oldPath, newPath string) error {
	if err := q.SubmitRetract(ctx, oldPath); err != nil {
		return err
	}
	return q.SubmitIngest(ctx, newPath)
}

// Reconcile diffs the stored records under root against the files that
// exist there. Records without a backing file are retracted; every current
// file is submitted for ingestion, which is a no-op for unchanged files.
func (q *WatchQueue) Reconcile(ctx context.Context, root string) error {
	root = DocumentName(root)

	names, err := q.metadata.ListAllNames(ctx)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	files, err := listFiles(root)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}

	prefix := root + string(filepath.Separator)
	var retracts int
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) || present[name] {
			continue
		}
		if err := q.SubmitRetract(ctx, name); err != nil {
			return err
		}
		retracts++
	}

	for _, f := range files {
		if err := q.SubmitIngest(ctx, f); err != nil {
			return err
		}
	}

	logger.Info("reconcile: %s: %d files, %d vanished records", root, len(files), retracts)
	return nil
}

func (q *WatchQueue) submit(ctx context.Context, j job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return domain.ErrQueueClosed
	}
	if q.ingestion.Ignore(j.path) {
		return nil
	}

	select {
	case q.jobs <- j:
		logger.Debug("queue: %s %s", j.kind, j.path)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *WatchQueue) work(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-q.jobs:
			if !ok {
				return
			}
			q.run(ctx, j)
		}
	}
}

// run executes one job. Failures are logged and never stop the worker.
func (q *WatchQueue) run(ctx context.Context, j job) {
	var err error
	switch j.kind {
	case jobIngest:
		_, err = q.ingestion.Ingest(ctx, j.path)
	case jobRetract:
		err = q.ingestion.Retract(ctx, j.path)
	}

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrMetadataStale):
		logger.Warn("queue: %s %s: %v", j.kind, j.path, err)
	default:
		logger.Error("queue: %s %s: %v", j.kind, j.path, err)
	}
}

// listFiles returns the regular files under root, skipping hidden directories.
func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A vanished root lists as empty so its records get retracted.
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
