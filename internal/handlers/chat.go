package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"relaychat-backend/internal/middleware"
	"relaychat-backend/internal/models"
	"relaychat-backend/internal/services"
)

const maxChatBody = 64 << 10

const (
	errMessageRequired  = "Message is required"
	errWebhookNotActive = "webhook_not_active"
	errFailedToProcess  = "Failed to process your request"
)

type chatReplier interface {
	Reply(ctx context.Context, sessionID *uuid.UUID, message string) (*services.Reply, error)
}

type ChatHandler struct {
	chat chatReplier
}

func NewChatHandler(chat chatReplier) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Send relays one message. Its response bodies are the flat
// {"response"} / {"error","response"} shapes the chat UI reads, not the
// {"error":{...}} envelope used elsewhere.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ChatErrorResponse{Error: errMessageRequired})
		return
	}

	reply, err := h.chat.Reply(r.Context(), middleware.GetSessionID(r.Context()), req.Message)

	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, models.ChatErrorResponse{Error: errMessageRequired})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, models.ChatErrorResponse{
			Error:    errFailedToProcess,
			Response: services.ServiceApology,
		})
	case reply.NotActive:
		// 200 so the UI renders the instructions as an assistant message
		writeJSON(w, http.StatusOK, models.ChatErrorResponse{
			Error:    errWebhookNotActive,
			Response: reply.Text,
		})
	default:
		writeJSON(w, http.StatusOK, models.ChatResponse{Response: reply.Text})
	}
}
