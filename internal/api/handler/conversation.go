package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/buzzteacher/internal/domain"
	"github.com/iconidentify/buzzteacher/internal/service"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	svc    *service.ConversationService
	logger *slog.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{
		svc:    svc,
		logger: logger,
	}
}

// CreateConversationRequest is the body of POST /conversations.
type CreateConversationRequest struct {
	Title    string   `json:"title"`
	Creators []string `json:"creators"`
}

// AppendMessageRequest is the body of POST /conversations/{id}/messages.
type AppendMessageRequest struct {
	Role            domain.Role             `json:"role"`
	Content         string                  `json:"content"`
	Creators        []string                `json:"creators"`
	CreatorSections []domain.PersonaSection `json:"creatorSections"`
}

// GenerateTitleRequest is the optional body of POST /conversations/{id}/generate-title.
type GenerateTitleRequest struct {
	UserMessage string `json:"userMessage"`
	AIResponse  string `json:"aiResponse"`
}

// List handles GET /api/v1/conversations.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	convs, err := h.svc.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list conversations", "error", err)
		writeDomainError(w, err)
		return
	}
	if convs == nil {
		convs = []*domain.Conversation{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"conversations": convs})
}

// Create handles POST /api/v1/conversations.
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.svc.Create(r.Context(), req.Title, req.Creators)
	if err != nil {
		h.logger.Error("failed to create conversation", "error", err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"conversation": conv})
}

// Get handles GET /api/v1/conversations/{id}.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conv, err := h.svc.Get(r.Context(), conversationID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"conversation": conv})
}

// Messages handles GET /api/v1/conversations/{id}/messages.
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.Messages(r.Context(), conversationID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if msgs == nil {
		msgs = []*domain.Message{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

// AppendMessage handles POST /api/v1/conversations/{id}/messages.
func (h *ConversationHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	var req AppendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.svc.Append(r.Context(), conversationID(r), service.AppendRequest{
		Role:     req.Role,
		Content:  req.Content,
		Personas: req.Creators,
		Sections: req.CreatorSections,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": msg})
}

// GenerateTitle handles POST /api/v1/conversations/{id}/generate-title.
func (h *ConversationHandler) GenerateTitle(w http.ResponseWriter, r *http.Request) {
	var req GenerateTitleRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := conversationID(r)
	title, err := h.svc.GenerateTitle(r.Context(), id, req.UserMessage, req.AIResponse)
	if err != nil {
		h.logger.Warn("failed to generate title", "conversation_id", id, "error", err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"title": title})
}

// decodeOptional decodes a JSON body that may be absent.
func decodeOptional(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func conversationID(r *http.Request) domain.ConversationID {
	return domain.ConversationID(chi.URLParam(r, "conversationID"))
}
