package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/buzzteacher/internal/domain"
	"github.com/iconidentify/buzzteacher/internal/service"
	"github.com/iconidentify/buzzteacher/internal/stream"
)

// ChatHandler serves the streaming chat endpoint.
type ChatHandler struct {
	chat   *service.ChatService
	logger *slog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		logger: logger,
	}
}

// ChatRequest is the JSON body of POST /api/v1/chat.
type ChatRequest struct {
	Messages         []domain.ChatMessage    `json:"messages"`
	Creators         []string                `json:"creators"`
	DiscussionMode   bool                    `json:"discussionMode"`
	PreviousAnalyses []domain.PersonaSection `json:"previousAnalyses"`
	ConversationID   string                  `json:"conversationId"`
}

func (r ChatRequest) toService() service.ChatRequest {
	return service.ChatRequest{
		Messages:         r.Messages,
		Personas:         r.Creators,
		DiscussionMode:   r.DiscussionMode,
		PreviousAnalyses: r.PreviousAnalyses,
		ConversationID:   domain.ConversationID(r.ConversationID),
	}
}

// Chat handles POST /api/v1/chat. Validation errors are plain JSON; once
// the event stream has started every problem is reported in-band and the
// stream still ends with the done sentinel.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var body ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := body.toService()
	if err := h.chat.Validate(r.Context(), req); err != nil {
		writeDomainError(w, err)
		return
	}

	logger := h.logger.With("request_id", middleware.GetReqID(r.Context()))

	stream.PrepareHeaders(w)
	w.WriteHeader(http.StatusOK)
	mux := stream.NewMultiplexer(w)

	if err := h.chat.Stream(r.Context(), mux, req); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("client disconnected during chat stream")
		} else {
			logger.Warn("chat stream ended early", "error", err)
		}
	}

	if err := mux.Done(); err != nil {
		logger.Debug("could not write done sentinel", "error", err)
	}

	logger.Info("chat stream finished",
		"frames", mux.Sent(),
		"discussion", req.DiscussionMode,
		"personas", len(req.Personas),
	)
}
