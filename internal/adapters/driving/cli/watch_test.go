package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQueue records the lifecycle calls made by watchDir.
type fakeQueue struct {
	calls      []string
	reconciled string
}

func (q *fakeQueue) Start(context.Context) { q.calls = append(q.calls, "start") }
func (q *fakeQueue) Stop()                 { q.calls = append(q.calls, "stop") }

func (q *fakeQueue) SubmitIngest(context.Context, string) error  { return nil }
func (q *fakeQueue) SubmitRetract(context.Context, string) error { return nil }

func (q *fakeQueue) SubmitRename(context.Context, string, string) error { return nil }

func (q *fakeQueue) Reconcile(_ context.Context, root string) error {
	q.calls = append(q.calls, "reconcile")
	q.reconciled = root
	return nil
}

func TestWatchDir_ReconcilesThenStops(t *testing.T) {
	dir := t.TempDir()
	queue := &fakeQueue{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, watchDir(ctx, queue, dir))

	assert.Equal(t, []string{"start", "reconcile", "stop"}, queue.calls)
	assert.Equal(t, dir, queue.reconciled)
}

func TestWatchDir_MissingDir(t *testing.T) {
	queue := &fakeQueue{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := watchDir(ctx, queue, "/does/not/exist")

	assert.Error(t, err)
	assert.Equal(t, "stop", queue.calls[len(queue.calls)-1])
}
