package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driving"
	"github.com/custodia-labs/tinyrag/internal/logger"
)

// Ensure ChatOrchestrator implements the interface.
var _ driving.ChatService = (*ChatOrchestrator)(nil)

// ChatOrchestrator streams retrieval-augmented answers as cumulative frames.
// Each call owns its answer buffer and reference map; calls are safe to run
// concurrently with each other and with ingestion.
type ChatOrchestrator struct {
	retrieval   driving.RetrievalService
	model       driven.ChatModel
	settings    domain.ChatSettings
	promptStore driven.PromptStore
}

// NewChatOrchestrator creates a chat orchestrator.
func NewChatOrchestrator(
	retrieval driving.RetrievalService,
	model driven.ChatModel,
	settings domain.ChatSettings,
) *ChatOrchestrator {
	if settings.BaseContext <= 0 {
		settings.BaseContext = DefaultBaseContext
	}
	return &ChatOrchestrator{
		retrieval: retrieval,
		model:     model,
		settings:  settings,
	}
}

// StreamAnswer answers the last user turn of history. Frames carry the
// cumulative answer; on failure one error frame is sent. The end sentinel
// always follows, then the channel is closed. Cancelling ctx stops the
// stream without further frames.
func (s *ChatOrchestrator) StreamAnswer(ctx context.Context, history []domain.ChatMessage) <-chan domain.ChatFrame {
	out := make(chan domain.ChatFrame)
	go func() {
		defer close(out)
		s.stream(ctx, history, out)
		send(ctx, out, domain.EndFrame())
	}()
	return out
}

//nolint:gocyclo // Streaming loop with necessary terminal cases
func (s *ChatOrchestrator) stream(ctx context.Context, history []domain.ChatMessage, out chan<- domain.ChatFrame) {
	requestID := uuid.NewString()
	conversation := withoutSystemTurns(history)

	// 1. Assemble the knowledge context
	knowledge, err := s.retrieval.Assemble(ctx, conversation)
	if err != nil {
		logger.Warn("chat %s: retrieve: %v", requestID, err)
		send(ctx, out, errorFrame(err))
		return
	}

	// 2. Build the authoritative system prompt
	prompt := BuildSystemPrompt(s.basePrompt(), knowledge.Context,
		s.loadPrompt(driven.PromptCitation, domain.DefaultCitationInstruction))
	messages := make([]domain.ChatMessage, 0, len(conversation)+1)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: prompt})
	messages = append(messages, conversation...)

	// 3. Size the context window and start the model
	promptTokens := EstimateMessagesTokens(messages)
	opts := domain.ChatOptions{
		Temperature:      s.settings.Temperature,
		MaxTokens:        s.settings.MaxTokens,
		TopP:             s.settings.TopP,
		PresencePenalty:  s.settings.PresencePenalty,
		FrequencyPenalty: s.settings.FrequencyPenalty,
		ContextWindow:    DynamicContextSize(messages, s.settings.BaseContext),
	}
	logger.Debug("chat %s: %d references, ~%d prompt tokens, context %d",
		requestID, len(knowledge.References), promptTokens, opts.ContextWindow)

	events, err := s.model.Chat(ctx, messages, opts)
	if err != nil {
		logger.Warn("chat %s: start: %v", requestID, err)
		send(ctx, out, errorFrame(err))
		return
	}

	// 4. Relay tokens as cumulative frames until the terminal event
	var answer strings.Builder
	for ev := range events {
		switch {
		case ev.Err != nil:
			logger.Warn("chat %s: stream: %v", requestID, ev.Err)
			send(ctx, out, errorFrame(ev.Err))
			return
		case ev.Done:
			logger.Debug("chat %s: done, %d tokens reported", requestID, ev.TokenCount)
			return
		}

		answer.WriteString(ev.Token)
		frame := domain.ChatFrame{
			Code:    domain.FrameCodeSuccess,
			Message: "success",
			Data: &domain.FramePayload{
				Answer:         answer.String(),
				ReferenceMeta:  knowledge.References,
				Prompt:         prompt,
				PromptTokenNum: promptTokens,
				AnswerTokenNum: EstimateTokens(answer.String()),
			},
		}
		if !send(ctx, out, frame) {
			return
		}
	}
}

// SetPromptStore sets the store for user-customisable prompts.
// If not set, the configured system prompt and the built-in citation
// instruction are used.
func (s *ChatOrchestrator) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// basePrompt returns the configured system prompt. A prompt set in the
// config file wins over the prompt file.
func (s *ChatOrchestrator) basePrompt() string {
	if s.settings.SystemPrompt != "" && s.settings.SystemPrompt != domain.DefaultSystemPrompt {
		return s.settings.SystemPrompt
	}
	return s.loadPrompt(driven.PromptChatSystem, domain.DefaultSystemPrompt)
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (s *ChatOrchestrator) loadPrompt(name, fallback string) string {
	if s.promptStore == nil {
		return fallback
	}
	prompt, err := s.promptStore.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return fallback
	}
	return prompt
}

// BuildSystemPrompt joins the base prompt, the knowledge context and the
// citation instruction. Empty parts fall back to the defaults.
func BuildSystemPrompt(base, knowledge, citation string) string {
	if strings.TrimSpace(base) == "" {
		base = domain.DefaultSystemPrompt
	}
	if strings.TrimSpace(citation) == "" {
		citation = domain.DefaultCitationInstruction
	}
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nHere is the knowledge base:\n")
	b.WriteString(knowledge)
	b.WriteString("\nThe above is the knowledge base.\n\n")
	b.WriteString(citation)
	return b.String()
}

// withoutSystemTurns drops caller-supplied system messages.
func withoutSystemTurns(history []domain.ChatMessage) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Role == domain.RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}

func errorFrame(err error) domain.ChatFrame {
	return domain.ErrorFrame(domain.FrameCodeError, err)
}

// send delivers a frame unless ctx is cancelled first.
func send(ctx context.Context, out chan<- domain.ChatFrame, frame domain.ChatFrame) bool {
	select {
	case out <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}

// ErrorAnswer reports whether an answer is an error message and returns it.
func ErrorAnswer(answer string) (string, bool) {
	if msg, ok := strings.CutPrefix(answer, domain.ErrorAnswerPrefix); ok {
		return msg, true
	}
	return "", false
}

// FormatReferences renders a reference map as numbered citation lines.
func FormatReferences(refs domain.ReferenceMeta) string {
	var b strings.Builder
	for i := 0; i < len(refs); i++ {
		ref, ok := refs[i]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "[ID:%d] %s (%s)\n", i, ref.FileName, ref.ContentType)
	}
	return b.String()
}
