package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/logger"
)

// maxBodyBytes caps the chat request body.
const maxBodyBytes = 4 << 20

// ChatRequest is the body of POST /chat_completion.
type ChatRequest struct {
	History []domain.ChatMessage `json:"history"`
}

// errorResponse is written for requests rejected before streaming starts.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleChatCompletion streams one frame per line, flushing after each.
// Only an undecodable body gets a bare HTTP 400. Every decoded request,
// including one whose history is invalid, is answered with frames that
// end in the sentinel.
func (s *Server) handleChatCompletion(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)

	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.Warn("http %s: decode: %v", requestID, err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: http.StatusBadRequest, Message: "invalid JSON: " + err.Error()})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: http.StatusInternalServerError, Message: "streaming not supported"})
		return
	}

	var frames <-chan domain.ChatFrame
	if err := validateHistory(req.History); err != nil {
		logger.Debug("http %s: rejected: %v", requestID, err)
		frames = rejected(err)
	} else {
		logger.Debug("http %s: chat_completion with %d turns", requestID, len(req.History))
		frames = s.chat.StreamAnswer(r.Context(), req.History)
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	sent := 0
	for frame := range frames {
		// Encode appends the newline that delimits frames.
		if err := enc.Encode(frame); err != nil {
			logger.Warn("http %s: write: %v", requestID, err)
			// Drain so the producer is not left blocked on a send.
			continue
		}
		flusher.Flush()
		sent++
	}

	logger.Debug("http %s: sent %d frames", requestID, sent)
}

// rejected yields a bad-request error frame and the end sentinel.
func rejected(err error) <-chan domain.ChatFrame {
	out := make(chan domain.ChatFrame, 2)
	out <- domain.ErrorFrame(domain.FrameCodeBadRequest, err)
	out <- domain.EndFrame()
	close(out)
	return out
}

// validateHistory rejects conversations without a user question.
func validateHistory(history []domain.ChatMessage) error {
	if len(history) == 0 {
		return errors.New("history is required")
	}
	for i, m := range history {
		switch m.Role {
		case domain.RoleUser, domain.RoleAssistant, domain.RoleSystem:
		default:
			return fmt.Errorf("history[%d]: unknown role %q", i, m.Role)
		}
	}
	for _, m := range history {
		if m.Role == domain.RoleUser && strings.TrimSpace(m.Content) != "" {
			return nil
		}
	}
	return errors.New("history has no user turn")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
