// Package openai provides a streaming chat model adapter for the OpenAI API
// and OpenAI-compatible servers.
package openai

import (
	"bufio"
	"bytes"
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

// Ensure ChatModel implements the interface.
var _ driven.ChatModel = (*ChatModel)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 5 * time.Minute
)

const maxLineSize = 1 << 20

// Config holds configuration for the OpenAI chat model.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout bounds a whole streamed answer (default: 5m).
	Timeout time.Duration

	// RequestsPerSecond throttles requests. Zero means unlimited.
	RequestsPerSecond float64
}

// ChatModel streams chat completions from /chat/completions.
type ChatModel struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	limiter *ratelimit.Limiter
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model            string              `json:"model"`
	Messages         []chatCompletionMsg `json:"messages"`
	Stream           bool                `json:"stream"`
	StreamOptions    *streamOptions      `json:"stream_options,omitempty"`
	MaxTokens        int                 `json:"max_tokens,omitempty"`
	Temperature      float64             `json:"temperature,omitempty"`
	TopP             float64             `json:"top_p,omitempty"`
	PresencePenalty  float64             `json:"presence_penalty,omitempty"`
	FrequencyPenalty float64             `json:"frequency_penalty,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionChunk is one server-sent event of a streamed completion.
type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewChatModel creates a new OpenAI chat model.
func NewChatModel(cfg Config) (*ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &ChatModel{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		limiter: ratelimit.New(cfg.RequestsPerSecond, 1),
	}, nil
}

// Chat starts a streamed completion. Connection and status errors are
// returned directly; failures mid-stream arrive as an Err event.
//
// The context window is chosen by the provider; opts.ContextWindow is unused.
func (m *ChatModel) Chat(
	ctx context.Context,
	messages []domain.ChatMessage,
	opts domain.ChatOptions,
) (<-chan domain.ChatEvent, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqBody := chatCompletionRequest{
		Model:            m.model,
		Messages:         make([]chatCompletionMsg, len(messages)),
		Stream:           true,
		StreamOptions:    &streamOptions{IncludeUsage: true},
		MaxTokens:        opts.MaxTokens,
		Temperature:      opts.Temperature,
		TopP:             opts.TopP,
		PresencePenalty:  opts.PresencePenalty,
		FrequencyPenalty: opts.FrequencyPenalty,
	}
	for i, msg := range messages {
		reqBody.Messages[i] = chatCompletionMsg{Role: msg.Role, Content: msg.Content}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %w", domain.ErrLLMUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		m.limiter.Observe(resp)
		body, _ := io.ReadAll(resp.Body)
		var errResp struct {
			Error *apiError `json:"error"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != nil {
			return nil, fmt.Errorf("openai error (status %d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("openai error (status %d): %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	events := make(chan domain.ChatEvent)
	go m.relay(ctx, resp.Body, events)
	return events, nil
}

// relay decodes "data:" lines into events until the [DONE] marker.
//
//nolint:gocyclo // Event loop with necessary terminal cases
func (m *ChatModel) relay(ctx context.Context, body io.ReadCloser, events chan<- domain.ChatEvent) {
	defer close(events)
	defer body.Close()

	emit := func(ev domain.ChatEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	total := 0
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		data, ok := bytes.CutPrefix(scanner.Bytes(), []byte("data:"))
		if !ok {
			// comments, event names and blank separators
			continue
		}
		data = bytes.TrimSpace(data)
		if bytes.Equal(data, []byte("[DONE]")) {
			emit(domain.ChatEvent{Done: true, TokenCount: total})
			return
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			emit(domain.ChatEvent{Err: fmt.Errorf("openai: decode stream: %w", err)})
			return
		}
		if chunk.Error != nil {
			emit(domain.ChatEvent{Err: fmt.Errorf("openai error: %s", chunk.Error.Message)})
			return
		}
		if chunk.Usage != nil {
			total = chunk.Usage.TotalTokens
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if !emit(domain.ChatEvent{Token: choice.Delta.Content}) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		emit(domain.ChatEvent{Err: fmt.Errorf("%w: openai: %w", domain.ErrLLMUnavailable, err)})
		return
	}
	emit(domain.ChatEvent{Err: fmt.Errorf("openai: stream ended before completion")})
}

// ModelName returns the name of the chat model being used.
func (m *ChatModel) ModelName() string {
	return m.model
}

// Ping validates the API key by listing models, without running inference.
func (m *ChatModel) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: openai: ping failed: %w", domain.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

// Close releases resources.
func (m *ChatModel) Close() error {
	return nil
}
