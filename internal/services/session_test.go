package services

import (
	"context"
	"testing"
	"time"

	"relaychat-backend/internal/middleware"
)

func TestSessionService_Create(t *testing.T) {
	jwtAuth := middleware.NewJWTAuth("test-secret")
	svc := NewSessionService(jwtAuth, time.Hour)
	fixed := time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	session, err := svc.Create(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !session.ExpiresAt.Equal(fixed.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %s", session.ExpiresAt)
	}

	// The token is validated against the real clock, so only check the id claim
	// through a fresh token.
	svc.now = time.Now
	session, err = svc.Create(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id, err := jwtAuth.ParseSessionToken(session.Token)
	if err != nil {
		t.Fatalf("failed to parse issued token: %v", err)
	}
	if id != session.ID {
		t.Fatalf("token carries %s, expected %s", id, session.ID)
	}
}
