package domain

import (
	"bytes"
	"encoding/json"
)

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions configures one chat model call.
type ChatOptions struct {
	// Temperature controls sampling randomness.
	Temperature float64

	// MaxTokens caps the number of generated tokens (0 means provider default).
	MaxTokens int

	// TopP is nucleus sampling probability mass.
	TopP float64

	// PresencePenalty and FrequencyPenalty discourage repetition.
	PresencePenalty  float64
	FrequencyPenalty float64

	// ContextWindow is the context size requested from the model.
	ContextWindow int
}

// ChatEvent is one item of a chat model's stream. Either Token is set,
// Done is set with the total TokenCount, or Err reports a failure.
type ChatEvent struct {
	Token      string
	Done       bool
	TokenCount int
	Err        error
}

// ChunkRef identifies the chunk behind a citation index.
type ChunkRef struct {
	ChunkID     string      `json:"chunk_id"`
	FileName    string      `json:"file_name"`
	ContentType ContentType `json:"content_type"`
	ContentURL  string      `json:"content_url,omitempty"`
}

// ReferenceMeta maps citation indices to chunks for one request.
type ReferenceMeta map[int]ChunkRef

// KnowledgeContext is the assembled retrieval result for one conversation.
type KnowledgeContext struct {
	// Context is the prompt text with [ID:n] tagged fragments grouped by file.
	Context string

	// References maps each [ID:n] to its chunk.
	References ReferenceMeta
}

// Frame codes.
const (
	FrameCodeSuccess    = 0
	FrameCodeBadRequest = 400
	FrameCodeError      = 500
)

// ErrorAnswerPrefix marks an error message placed in the answer field.
const ErrorAnswerPrefix = "**ERROR**: "

// FramePayload is the data of a non-terminal chat frame.
type FramePayload struct {
	Answer         string        `json:"answer"`
	ReferenceMeta  ReferenceMeta `json:"reference_meta"`
	Prompt         string        `json:"prompt"`
	PromptTokenNum int           `json:"prompt_token_num"`
	AnswerTokenNum int           `json:"answer_token_num"`
}

// ChatFrame is one framed payload of a streamed answer.
// A frame with nil Data is the end-of-stream sentinel and encodes as "data": {}.
type ChatFrame struct {
	Code    int
	Message string
	Data    *FramePayload
}

// EndFrame returns the end-of-stream sentinel.
func EndFrame() ChatFrame {
	return ChatFrame{Code: FrameCodeSuccess, Message: "success"}
}

// ErrorFrame carries err as the answer of a frame with the given code and
// an empty reference map.
func ErrorFrame(code int, err error) ChatFrame {
	return ChatFrame{
		Code:    code,
		Message: "error",
		Data: &FramePayload{
			Answer:        ErrorAnswerPrefix + err.Error(),
			ReferenceMeta: ReferenceMeta{},
		},
	}
}

// IsEnd reports whether the frame terminates the stream.
func (f ChatFrame) IsEnd() bool {
	return f.Data == nil
}

type wireFrame struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// MarshalJSON encodes the frame in the chat-completion wire format.
func (f ChatFrame) MarshalJSON() ([]byte, error) {
	data := []byte("{}")
	if f.Data != nil {
		var err error
		if data, err = json.Marshal(f.Data); err != nil {
			return nil, err
		}
	}
	return json.Marshal(wireFrame{Code: f.Code, Message: f.Message, Data: data})
}

// UnmarshalJSON decodes a wire frame; an empty data object yields the sentinel.
func (f *ChatFrame) UnmarshalJSON(b []byte) error {
	var w wireFrame
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	f.Code = w.Code
	f.Message = w.Message
	f.Data = nil
	trimmed := bytes.TrimSpace(w.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("{}")) || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var payload FramePayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return err
	}
	f.Data = &payload
	return nil
}
