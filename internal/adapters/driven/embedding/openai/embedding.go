// Package openai embeds text through the OpenAI /embeddings endpoint or any
// API compatible with it.
package openai

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
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
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second
)

// Config configures the service. Only APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions shortens text-embedding-3-* vectors. Zero keeps the model default.
	Dimensions int

	// RequestsPerSecond throttles requests. Zero means unlimited.
	RequestsPerSecond float64
}

// EmbeddingService is a dense embedder backed by the remote API.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	limiter    *ratelimit.Limiter
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	s := &EmbeddingService{
		client:     &http.Client{Timeout: cmp.Or(cfg.Timeout, DefaultTimeout)},
		baseURL:    cmp.Or(cfg.BaseURL, DefaultBaseURL),
		apiKey:     cfg.APIKey,
		model:      cmp.Or(cfg.Model, DefaultModel),
		dimensions: cfg.Dimensions,
		limiter:    ratelimit.New(cfg.RequestsPerSecond, 1),
	}
	return s, nil
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, errors.New("openai: no embedding returned")
	}
	return vecs[0], nil
}

// EmbedBatch sends all texts in one request. Results are placed by the
// index the API reports, not by response order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(embeddingRequest{Model: s.model, Input: texts, Dimensions: s.dimensions})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	status, body, err := s.do(ctx, http.MethodPost, "/embeddings", payload)
	if err != nil {
		return nil, err
	}

	var out embeddingResponse
	decodeErr := json.Unmarshal(body, &out)
	switch {
	case decodeErr == nil && out.Error != nil:
		return nil, fmt.Errorf("openai error: %s", out.Error.Message)
	case status != http.StatusOK:
		return nil, fmt.Errorf("openai error (status %d): %s", status, body)
	case decodeErr != nil:
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}

	vecs := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vecs[d.Index] = vec
	}
	return vecs, nil
}

func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists models, which checks the key without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	status, body, err := s.do(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("openai: API returned status %d: %s", status, body)
	}
	return nil
}

func (s *EmbeddingService) Close() error { return nil }

// do performs an authenticated request and returns the status and full body.
// Transport failures are reported as ErrEmbeddingUnavailable.
func (s *EmbeddingService) do(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var reader io.Reader = http.NoBody
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: openai: %w", domain.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()
	s.limiter.Observe(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
