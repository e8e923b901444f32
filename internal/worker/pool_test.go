package worker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"relaychat-backend/internal/models"
)

func TestDecodeJob(t *testing.T) {
	sessionID := uuid.New()
	entry := models.TranscriptEntry{
		ID:        uuid.New(),
		SessionID: &sessionID,
		Role:      models.RoleUser,
		Content:   "hello",
		CreatedAt: time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC),
	}
	raw, _ := json.Marshal(Job{Entry: entry, Attempts: 1})

	job, err := decodeJob(string(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Entry.ID != entry.ID || *job.Entry.SessionID != sessionID || job.Attempts != 1 {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestDecodeJob_Rejects(t *testing.T) {
	for _, raw := range []string{`not json`, `{"entry":{}}`} {
		if _, err := decodeJob(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestRetryBackoff(t *testing.T) {
	if retryBackoff(1) != 2*time.Second || retryBackoff(2) != 4*time.Second {
		t.Fatalf("unexpected backoff: %s, %s", retryBackoff(1), retryBackoff(2))
	}
}
