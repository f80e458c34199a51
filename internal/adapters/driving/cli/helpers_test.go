package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

// fakeIngestion records calls and returns canned results per path.
type fakeIngestion struct {
	mu        sync.Mutex
	results   map[string][]string
	errs      map[string]error
	ignored   map[string]bool
	ingested  []string
	retracted []string
}

func (f *fakeIngestion) Ingest(_ context.Context, path string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingested = append(f.ingested, path)
	return f.results[path], f.errs[path]
}

func (f *fakeIngestion) Retract(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retracted = append(f.retracted, path)
	return f.errs[path]
}

func (f *fakeIngestion) Ignore(path string) bool {
	return f.ignored[path]
}

// fakeDocuments serves fixed records and chunks.
type fakeDocuments struct {
	records []domain.DocumentRecord
	chunks  map[string][]domain.VectorRecord
}

func (f *fakeDocuments) List(_ context.Context) ([]domain.DocumentRecord, error) {
	return f.records, nil
}

func (f *fakeDocuments) Get(_ context.Context, path string) (*domain.DocumentRecord, error) {
	for i := range f.records {
		if f.records[i].Name == path {
			return &f.records[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDocuments) Chunks(_ context.Context, path string) ([]domain.VectorRecord, error) {
	chunks, ok := f.chunks[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return chunks, nil
}

// fakeChat replays fixed frames followed by the end sentinel.
type fakeChat struct {
	frames  []domain.ChatFrame
	history []domain.ChatMessage
}

func (f *fakeChat) StreamAnswer(_ context.Context, history []domain.ChatMessage) <-chan domain.ChatFrame {
	f.history = history
	return frameStream(f.frames...)
}

func frameStream(frames ...domain.ChatFrame) <-chan domain.ChatFrame {
	out := make(chan domain.ChatFrame, len(frames)+1)
	for _, f := range frames {
		out <- f
	}
	out <- domain.EndFrame()
	close(out)
	return out
}

func answer(text string, refs domain.ReferenceMeta) domain.ChatFrame {
	return domain.ChatFrame{
		Code:    domain.FrameCodeSuccess,
		Message: "success",
		Data:    &domain.FramePayload{Answer: text, ReferenceMeta: refs},
	}
}

// withServices installs an opener returning svc for the duration of the test.
func withServices(t *testing.T, svc *Services) {
	t.Helper()
	closed := false
	svc.Close = func() error {
		closed = true
		return nil
	}
	prev := openServicesFunc
	SetServicesOpener(func(context.Context, string) (*Services, error) {
		return svc, nil
	})
	t.Cleanup(func() {
		openServicesFunc = prev
		require.True(t, closed, "services were not closed")
	})
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		ingestPrune = false
		_ = askCmd.Flags().Set("json", "false")
		_ = documentsCmd.Flags().Set("prefix", "")
		_ = serveCmd.Flags().Set("addr", "")
		_ = serveCmd.Flags().Set("watch", "")
	})
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}
