package handler

import (
	"net/http"
	"time"

	"poultrymarket/internal/middleware"
	"poultrymarket/internal/model"
	"poultrymarket/internal/service"

	"github.com/rs/zerolog"
)

// ChatHandler handles conversations and messages.
type ChatHandler struct {
	service service.ChatService
	logger  zerolog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(service service.ChatService, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger.With().Str("handler", "chat").Logger(),
	}
}

// ListConversations handles GET /api/chat/conversations.
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.service.ListConversations(r.Context(), middleware.CurrentUser(r.Context()))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, conversations)
}

// Start handles POST /api/chat/conversations. An existing conversation is returned as is.
func (h *ChatHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req model.StartConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	c, err := h.service.Start(r.Context(), middleware.CurrentUser(r.Context()), req.ParticipantID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// ListMessages handles GET /api/chat/conversations/{id}/messages?before=&limit=.
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, r, model.Validationf("invalid before parameter"), h.logger)
			return
		}
		before = &t
	}

	messages, err := h.service.ListMessages(r.Context(), middleware.CurrentUser(r.Context()), id, before, limit)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// Send handles POST /api/chat/conversations/{id}/messages.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	var req model.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	m, err := h.service.Send(r.Context(), middleware.CurrentUser(r.Context()), id, req.Body)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

// MarkRead handles POST /api/chat/conversations/{id}/read.
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	n, err := h.service.MarkRead(r.Context(), middleware.CurrentUser(r.Context()), id)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}
