// Package ollama provides a streaming chat model adapter using Ollama.
package ollama

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
)

// Ensure ChatModel implements the interface.
var _ driven.ChatModel = (*ChatModel)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 5 * time.Minute
)

// maxLineSize bounds one NDJSON line of the stream.
const maxLineSize = 1 << 20

// Config holds configuration for the Ollama chat model.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the chat model to use (default: llama3.2).
	Model string

	// Timeout bounds a whole streamed answer (default: 5m).
	Timeout time.Duration
}

// ChatModel streams chat completions from Ollama's /api/chat endpoint.
type ChatModel struct {
	client  *http.Client
	baseURL string
	model   string
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	NumPredict       int     `json:"num_predict,omitempty"`
	NumCtx           int     `json:"num_ctx,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`
	TopP             float64 `json:"top_p,omitempty"`
	PresencePenalty  float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty float64 `json:"frequency_penalty,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatChunk is one NDJSON line of a streamed /api/chat response.
type chatChunk struct {
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	Error           string      `json:"error"`
}

// NewChatModel creates a new Ollama chat model.
func NewChatModel(cfg Config) *ChatModel {
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
		model:   cfg.Model,
	}
}

// Chat starts a streamed completion. Connection and status errors are
// returned directly; failures mid-stream arrive as an Err event.
func (m *ChatModel) Chat(
	ctx context.Context,
	messages []domain.ChatMessage,
	opts domain.ChatOptions,
) (<-chan domain.ChatEvent, error) {
	reqBody := chatRequest{
		Model:    m.model,
		Messages: make([]chatMessage, len(messages)),
		Stream:   true,
		Options: &options{
			NumPredict:       opts.MaxTokens,
			NumCtx:           opts.ContextWindow,
			Temperature:      opts.Temperature,
			TopP:             opts.TopP,
			PresencePenalty:  opts.PresencePenalty,
			FrequencyPenalty: opts.FrequencyPenalty,
		},
	}
	for i, msg := range messages {
		reqBody.Messages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama: %w", domain.ErrLLMUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	events := make(chan domain.ChatEvent)
	go m.relay(ctx, resp.Body, events)
	return events, nil
}

// relay decodes NDJSON chunks into events until the done chunk.
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

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			emit(domain.ChatEvent{Err: fmt.Errorf("ollama: decode stream: %w", err)})
			return
		}
		if chunk.Error != "" {
			emit(domain.ChatEvent{Err: fmt.Errorf("ollama: %s", chunk.Error)})
			return
		}
		if chunk.Message.Content != "" {
			if !emit(domain.ChatEvent{Token: chunk.Message.Content}) {
				return
			}
		}
		if chunk.Done {
			emit(domain.ChatEvent{Done: true, TokenCount: chunk.PromptEvalCount + chunk.EvalCount})
			return
		}
	}

	if err := scanner.Err(); err != nil {
		emit(domain.ChatEvent{Err: fmt.Errorf("%w: ollama: %w", domain.ErrLLMUnavailable, err)})
		return
	}
	emit(domain.ChatEvent{Err: fmt.Errorf("ollama: stream ended before completion")})
}

// ModelName returns the name of the chat model being used.
func (m *ChatModel) ModelName() string {
	return m.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
func (m *ChatModel) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama: ping failed: %w", domain.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

// Close releases resources.
func (m *ChatModel) Close() error {
	return nil
}
