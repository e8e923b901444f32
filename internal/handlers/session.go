package handlers

import (
	"context"
	"net/http"

	"relaychat-backend/internal/models"
)

type sessionCreator interface {
	Create(ctx context.Context) (*models.Session, error)
}

type SessionHandler struct {
	sessions sessionCreator
}

func NewSessionHandler(sessions sessionCreator) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Create(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}
