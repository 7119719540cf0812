package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/everlasthealth/assistant/internal/chat"
	"github.com/everlasthealth/assistant/internal/conversation"
	"github.com/everlasthealth/assistant/internal/rag"
)

// maxRequestBody caps the chat request body at 1 MiB.
const maxRequestBody = 1 << 20

// TurnHandler answers one conversational turn. Satisfied by
// chat.Orchestrator.
type TurnHandler interface {
	HandleTurn(ctx context.Context, message string, history []conversation.Message, currentStyle conversation.Style) (chat.Result, error)
}

// TurnRequest is the POST /api/chat request body.
type TurnRequest struct {
	Message        string                 `json:"message"`
	MessageHistory []conversation.Message `json:"messageHistory"`
	Style          string                 `json:"style"`
}

// TurnResponse is the POST /api/chat response body. NewStyle is present
// only when this turn switched the conversation style; clients persist it
// for subsequent requests.
type TurnResponse struct {
	Answer         string                      `json:"answer"`
	NewStyle       *conversation.Style         `json:"newStyle,omitempty"`
	SearchResults  []conversation.SearchResult `json:"searchResults"`
	StyleDetection conversation.StyleDetection `json:"styleDetection"`
}

// Chat handles the conversational endpoint.
type Chat struct {
	turns  TurnHandler
	logger *slog.Logger
}

// NewChat creates the chat handler.
func NewChat(turns TurnHandler, logger *slog.Logger) *Chat {
	return &Chat{turns: turns, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *Chat) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.Completion)
}

// Completion answers one user message.
func (h *Chat) Completion(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	style, err := conversation.ParseStyle(req.Style)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.turns.HandleTurn(r.Context(), req.Message, req.MessageHistory, style)
	if err != nil {
		h.writeTurnError(w, r, err)
		return
	}

	resp := TurnResponse{
		Answer:         result.Answer,
		SearchResults:  result.SearchResults,
		StyleDetection: result.StyleDetection,
	}
	if result.EffectiveStyle != style {
		newStyle := result.EffectiveStyle
		resp.NewStyle = &newStyle
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}

// writeTurnError maps orchestration failures to HTTP status codes:
// bad input is the client's fault, an unreachable knowledge base means we
// refuse to answer unguarded, and model failures are an upstream problem.
func (h *Chat) writeTurnError(w http.ResponseWriter, r *http.Request, err error) {
	requestID, _ := GetRequestID(r.Context())

	switch {
	case errors.Is(err, chat.ErrInvalidInput):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, rag.ErrUnavailable):
		h.logger.Error("knowledge retrieval unavailable", "error", err, "request_id", requestID)
		writeError(w, h.logger, http.StatusServiceUnavailable, "knowledge base unavailable")
	case errors.Is(err, chat.ErrCompletionFailed):
		h.logger.Error("completion failed", "error", err, "request_id", requestID)
		writeError(w, h.logger, http.StatusBadGateway, "model completion failed")
	default:
		h.logger.Error("chat turn failed", "error", err, "request_id", requestID)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
	}
}
