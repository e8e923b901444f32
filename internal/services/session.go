package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"relaychat-backend/internal/middleware"
	"relaychat-backend/internal/models"
)

// SessionService issues anonymous chat sessions. A session is nothing more than a
// signed id; it lets a tab read its history and share replies with other tabs.
type SessionService struct {
	jwt *middleware.JWTAuth
	ttl time.Duration
	now func() time.Time
}

func NewSessionService(jwt *middleware.JWTAuth, ttl time.Duration) *SessionService {
	return &SessionService{jwt: jwt, ttl: ttl, now: time.Now}
}

func (s *SessionService) Create(ctx context.Context) (*models.Session, error) {
	id := uuid.New()
	expiresAt := s.now().Add(s.ttl).UTC()

	token, err := s.jwt.GenerateSessionToken(id, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &models.Session{ID: id, Token: token, ExpiresAt: expiresAt}, nil
}
