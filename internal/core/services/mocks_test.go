package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/custodia-labs/tinyrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/fingerprint"
)

// fakeFiles serves file contents from a map instead of the disk.
type fakeFiles struct {
	mu    sync.Mutex
	files map[string]string
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{files: make(map[string]string)}
}

func (f *fakeFiles) set(path, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = content
}

func (f *fakeFiles) remove(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
}

func (f *fakeFiles) read(path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(content), nil
}

// fakeParsers splits file content into text blocks on blank lines.
// Lines starting with "IMG " become image blocks.
type fakeParsers struct {
	files *fakeFiles
	err   error
}

func (p *fakeParsers) Parse(_ context.Context, path string) (*domain.ParsedDocument, error) {
	if p.err != nil {
		return nil, p.err
	}
	content, err := p.files.read(path)
	if err != nil {
		return nil, err
	}
	doc := &domain.ParsedDocument{Path: path}
	for _, para := range strings.Split(string(content), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if name, ok := strings.CutPrefix(para, "IMG "); ok {
			doc.Blocks = append(doc.Blocks, domain.ContentBlock{
				Type:      domain.BlockTypeImage,
				ImagePath: name,
				ImageData: []byte("png:" + name),
				Captions:  []string{"figure " + name},
			})
			continue
		}
		doc.Blocks = append(doc.Blocks, domain.ContentBlock{Type: domain.BlockTypeText, Text: para})
	}
	return doc, nil
}

func (p *fakeParsers) Register(driven.Parser) {}

func (p *fakeParsers) SupportedExtensions() []string { return []string{"md", "txt"} }

// blockPipeline emits one chunk per block.
type blockPipeline struct{}

func (blockPipeline) Process(_ context.Context, doc *domain.ParsedDocument) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		switch b.Type {
		case domain.BlockTypeImage:
			desc := []byte(strings.Join(b.Captions, " "))
			chunks = append(chunks, domain.Chunk{
				ID:               fingerprint.ChunkID(b.ImageData, desc),
				ContentType:      domain.ContentTypeImage,
				Content:          b.ImageData,
				ExtraDescription: desc,
				ContentURL:       b.ImagePath,
				FileName:         doc.Path,
			})
		default:
			chunks = append(chunks, domain.Chunk{
				ID:          fingerprint.ChunkID([]byte(b.Text), nil),
				ContentType: domain.ContentTypeText,
				Content:     []byte(b.Text),
				FileName:    doc.Path,
			})
		}
	}
	return chunks, nil
}

// fakeEmbedder produces a bag-of-words sparse vector. Texts listed in
// failures fail that many times before succeeding.
type fakeEmbedder struct {
	mu       sync.Mutex
	failures map[string]int
	calls    int
}

func (e *fakeEmbedder) Encode(_ context.Context, text string) (domain.Embedding, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.failures[text] > 0 {
		e.failures[text]--
		return domain.Embedding{}, errors.New("embedding unavailable")
	}
	sparse := make(map[uint32]float32)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		sparse[fingerprint.Term(strings.Trim(w, ".,?!"))]++
	}
	return domain.Embedding{Dense: []float32{float32(len(text)), 1}, Sparse: sparse}, nil
}

func (e *fakeEmbedder) Name() string { return "fake" }

// fakeAssets keeps saved side-files in memory.
type fakeAssets struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{saved: make(map[string][]byte)}
}

func (a *fakeAssets) Save(_ context.Context, name string, data []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	url := "/assets/" + name
	a.saved[url] = data
	return url, nil
}

func (a *fakeAssets) Remove(_ context.Context, url string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.saved, url)
	return nil
}

func (a *fakeAssets) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.saved)
}

// flakyMetadata fails the next upsertFailures upserts.
type flakyMetadata struct {
	*memory.MetadataStore
	upsertFailures int
}

func (m *flakyMetadata) Upsert(ctx context.Context, record *domain.DocumentRecord) (int, error) {
	if m.upsertFailures > 0 {
		m.upsertFailures--
		return 0, errors.New("database is locked")
	}
	return m.MetadataStore.Upsert(ctx, record)
}

// ingestFixture wires an Ingestor to in-memory stores and fake files.
type ingestFixture struct {
	files    *fakeFiles
	metadata *flakyMetadata
	vectors  *memory.VectorStore
	embedder *fakeEmbedder
	assets   *fakeAssets
	ingestor *Ingestor
}

func newIngestFixture() *ingestFixture {
	f := &ingestFixture{
		files:    newFakeFiles(),
		metadata: &flakyMetadata{MetadataStore: memory.NewMetadataStore()},
		vectors:  memory.NewVectorStore(),
		embedder: &fakeEmbedder{failures: make(map[string]int)},
		assets:   newFakeAssets(),
	}
	f.ingestor = NewIngestor(
		f.metadata,
		f.vectors,
		f.embedder,
		&fakeParsers{files: f.files},
		blockPipeline{},
		f.assets,
		NewAdmission([]string{"md", "txt"}),
	)
	f.ingestor.readFile = f.files.read
	return f
}

// fakeChatModel streams fixed tokens and records the messages it received.
type fakeChatModel struct {
	mu       sync.Mutex
	tokens   []string
	err      error
	midErr   error
	messages [][]domain.ChatMessage
	opts     domain.ChatOptions
}

func (m *fakeChatModel) Chat(ctx context.Context, messages []domain.ChatMessage, opts domain.ChatOptions) (<-chan domain.ChatEvent, error) {
	m.mu.Lock()
	m.messages = append(m.messages, messages)
	m.opts = opts
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make(chan domain.ChatEvent)
	go func() {
		defer close(out)
		for _, tok := range m.tokens {
			select {
			case out <- domain.ChatEvent{Token: tok}:
			case <-ctx.Done():
				return
			}
		}
		final := domain.ChatEvent{Done: true, TokenCount: len(m.tokens)}
		if m.midErr != nil {
			final = domain.ChatEvent{Err: m.midErr}
		}
		select {
		case out <- final:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func (m *fakeChatModel) ModelName() string          { return "fake-chat" }
func (m *fakeChatModel) Ping(context.Context) error { return nil }
func (m *fakeChatModel) Close() error               { return nil }

func (m *fakeChatModel) lastMessages() []domain.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil
	}
	return m.messages[len(m.messages)-1]
}

// fakePrompts returns stored prompts by name.
type fakePrompts map[string]string

func (p fakePrompts) Load(name string) (string, error) {
	if v, ok := p[name]; ok {
		return v, nil
	}
	return "", os.ErrNotExist
}
