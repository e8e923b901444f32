package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"relaychat-backend/internal/middleware"
	"relaychat-backend/internal/models"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 500
)

type messageLister interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.ChatMessage, error)
}

type HistoryHandler struct {
	messages messageLister
}

// NewHistoryHandler takes a nil lister when no transcript store is configured.
func NewHistoryHandler(messages messageLister) *HistoryHandler {
	return &HistoryHandler{messages: messages}
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.messages == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("HISTORY_DISABLED", "Chat history is not enabled", r))
		return
	}

	sessionID := middleware.GetSessionID(r.Context())
	if sessionID == nil {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Session required", r))
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"))

	messages, err := h.messages.ListBySession(r.Context(), *sessionID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load history", r))
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}

	writeJSON(w, http.StatusOK, models.HistoryResponse{Messages: messages})
}

func parseLimit(val string) int {
	n, err := strconv.Atoi(val)
	if err != nil || n < 1 {
		return defaultHistoryLimit
	}
	if n > maxHistoryLimit {
		return maxHistoryLimit
	}
	return n
}
