package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driving"
)

// recordingQueue records submitted jobs as "kind:path" strings.
type recordingQueue struct {
	mu   sync.Mutex
	jobs []string
	err  error
}

var _ driving.WatchQueue = (*recordingQueue)(nil)

func (q *recordingQueue) Start(context.Context) {}
func (q *recordingQueue) Stop()                 {}

func (q *recordingQueue) SubmitIngest(_ context.Context, path string) error {
	return q.record("ingest:" + path)
}

func (q *recordingQueue) SubmitRetract(_ context.Context, path string) error {
	return q.record("retract:" + path)
}

func (q *recordingQueue) SubmitRename(_ context.Context, oldPath, newPath string) error {
	return q.record("rename:" + oldPath + ">" + newPath)
}

func (q *recordingQueue) Reconcile(_ context.Context, root string) error {
	return q.record("reconcile:" + root)
}

func (q *recordingQueue) record(job string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.jobs...)
}

func (q *recordingQueue) count(job string) int {
	n := 0
	for _, j := range q.snapshot() {
		if j == job {
			n++
		}
	}
	return n
}

func TestNew(t *testing.T) {
	w := New("/tmp/notes/", &recordingQueue{})

	require.NotNil(t, w)
	assert.Equal(t, "/tmp/notes", w.Root())
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestWatcher_classify(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "notes.md")
	require.NoError(t, os.WriteFile(file, []byte("# notes"), 0o644))
	dir := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(dir, 0o755))
	hidden := filepath.Join(root, ".notes.md.swp")
	require.NoError(t, os.WriteFile(hidden, []byte("x"), 0o644))

	w := New(root, &recordingQueue{})

	tests := []struct {
		name  string
		event fsnotify.Event
		want  action
	}{
		{"create file", fsnotify.Event{Name: file, Op: fsnotify.Create}, actionIngest},
		{"write file", fsnotify.Event{Name: file, Op: fsnotify.Write}, actionIngest},
		{"write and chmod", fsnotify.Event{Name: file, Op: fsnotify.Write | fsnotify.Chmod}, actionIngest},
		{"create directory", fsnotify.Event{Name: dir, Op: fsnotify.Create}, actionWatchDir},
		{"remove", fsnotify.Event{Name: filepath.Join(root, "gone.md"), Op: fsnotify.Remove}, actionRetract},
		{"rename", fsnotify.Event{Name: filepath.Join(root, "old.md"), Op: fsnotify.Rename}, actionRetract},
		{"chmod only", fsnotify.Event{Name: file, Op: fsnotify.Chmod}, actionNone},
		{"hidden file", fsnotify.Event{Name: hidden, Op: fsnotify.Create}, actionNone},
		{"hidden directory", fsnotify.Event{Name: filepath.Join(root, ".git", "index"), Op: fsnotify.Write}, actionNone},
		{"create of vanished file", fsnotify.Event{Name: filepath.Join(root, "tmp.md"), Op: fsnotify.Create}, actionNone},
		{"outside root", fsnotify.Event{Name: filepath.Join(filepath.Dir(root), "other.md"), Op: fsnotify.Write}, actionNone},
		{"root itself", fsnotify.Event{Name: root, Op: fsnotify.Remove}, actionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.classify(tt.event))
		})
	}
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))

	q := &recordingQueue{}
	w := New(root, q)
	w.SetDebounce(50 * time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		w.dispatch(ctx, fsnotify.Event{Name: file, Op: fsnotify.Write})
	}

	require.Eventually(t, func() bool {
		return q.count("ingest:"+file) == 1
	}, time.Second, 10*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{"ingest:" + file}, q.snapshot())
}

func TestWatcher_RemoveCancelsPendingIngest(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))

	q := &recordingQueue{}
	w := New(root, q)
	w.SetDebounce(50 * time.Millisecond)
	ctx := context.Background()

	w.dispatch(ctx, fsnotify.Event{Name: file, Op: fsnotify.Create})
	w.dispatch(ctx, fsnotify.Event{Name: file, Op: fsnotify.Remove})

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{"retract:" + file}, q.snapshot())
}

func TestWatcher_CancelledContextDropsIngest(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))

	q := &recordingQueue{}
	w := New(root, q)
	w.SetDebounce(20 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	w.dispatch(ctx, fsnotify.Event{Name: file, Op: fsnotify.Write})
	cancel()

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, q.snapshot())
}

func TestWatcher_RemovedDirectoryReconciles(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	nested := filepath.Join(sub, "nested")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	q := &recordingQueue{}
	w := New(root, q)
	_, err := w.addTree(root)
	require.NoError(t, err)
	assert.Equal(t, 3, w.watchedDirs())

	w.dispatch(context.Background(), fsnotify.Event{Name: sub, Op: fsnotify.Remove})

	assert.Equal(t, []string{"reconcile:" + sub}, q.snapshot())
	assert.Equal(t, 1, w.watchedDirs())
}

func TestWatcher_addTreeSkipsHidden(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "a.md"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", ".a.md.swp"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref"), 0o644))

	w := New(root, &recordingQueue{})
	files, err := w.addTree(root)

	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "docs", "a.md")}, files)
	assert.Equal(t, 2, w.watchedDirs())
}

func TestWatcher_SubmitErrorsAreSwallowed(t *testing.T) {
	root := t.TempDir()
	q := &recordingQueue{err: domain.ErrQueueClosed}
	w := New(root, q)
	w.SetDebounce(0)

	assert.NotPanics(t, func() {
		w.dispatch(context.Background(), fsnotify.Event{Name: filepath.Join(root, "x.md"), Op: fsnotify.Remove})
	})
	assert.Empty(t, q.snapshot())
}

func TestWatcher_Watch(t *testing.T) {
	t.Run("rejects a missing root", func(t *testing.T) {
		w := New(filepath.Join(t.TempDir(), "missing"), &recordingQueue{})
		assert.Error(t, w.Watch(context.Background()))
	})

	t.Run("rejects a file root", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "a.txt")
		require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))

		err := New(file, &recordingQueue{}).Watch(context.Background())
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("relays file changes", func(t *testing.T) {
		root := t.TempDir()
		existing := filepath.Join(root, "existing.txt")
		require.NoError(t, os.WriteFile(existing, []byte("v1"), 0o644))

		q := &recordingQueue{}
		w := New(root, q)
		w.SetDebounce(20 * time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- w.Watch(ctx) }()

		require.Eventually(t, func() bool { return w.watchedDirs() == 1 }, time.Second, 10*time.Millisecond)

		created := filepath.Join(root, "new.txt")
		require.NoError(t, os.WriteFile(created, []byte("content"), 0o644))
		require.Eventually(t, func() bool {
			return q.count("ingest:"+created) > 0
		}, 2*time.Second, 10*time.Millisecond)

		require.NoError(t, os.Remove(existing))
		require.Eventually(t, func() bool {
			return q.count("retract:"+existing) > 0
		}, 2*time.Second, 10*time.Millisecond)

		sub := filepath.Join(root, "sub")
		require.NoError(t, os.Mkdir(sub, 0o755))
		nested := filepath.Join(sub, "deep.txt")
		require.NoError(t, os.WriteFile(nested, []byte("deep"), 0o644))
		require.Eventually(t, func() bool {
			return q.count("ingest:"+nested) > 0
		}, 2*time.Second, 10*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("watch did not return after cancel")
		}
	})
}
