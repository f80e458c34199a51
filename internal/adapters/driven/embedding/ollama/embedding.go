// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/ratelimit"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "nomic-embed-text"
	DefaultTimeout = 30 * time.Second
)

// Config configures the service. Every field is optional.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// RequestsPerSecond throttles requests. Zero means unlimited.
	RequestsPerSecond float64
}

// EmbeddingService calls /api/embeddings once per text.
type EmbeddingService struct {
	client  *http.Client
	baseURL string
	model   string
	limiter *ratelimit.Limiter
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

func NewEmbeddingService(cfg Config) *EmbeddingService {
	return &EmbeddingService{
		client:  &http.Client{Timeout: cmp.Or(cfg.Timeout, DefaultTimeout)},
		baseURL: cmp.Or(cfg.BaseURL, DefaultBaseURL),
		model:   cmp.Or(cfg.Model, DefaultModel),
		limiter: ratelimit.New(cfg.RequestsPerSecond, 1),
	}
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(embedRequest{Model: s.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var out embedResponse
	if err := s.call(ctx, http.MethodPost, "/api/embeddings", payload, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("ollama: empty embedding for model %s", s.model)
	}

	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists installed models, which checks connectivity without inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.call(ctx, http.MethodGet, "/api/tags", nil, nil)
}

func (s *EmbeddingService) Close() error { return nil }

// call sends the request and decodes a 200 response into out when out is
// non-nil. Connection failures wrap ErrEmbeddingUnavailable.
func (s *EmbeddingService) call(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama: %w", domain.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.limiter.Observe(resp)
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
