package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"relaychat-backend/internal/models"
)

func newTestClient(url string) *Client {
	c := NewClient(func() string { return url }, "Test User", nil)
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestClient_Send_PostsPayload(t *testing.T) {
	var got models.WebhookPayload
	var contentType, agent string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		contentType = r.Header.Get("Content-Type")
		agent = r.Header.Get("User-Agent")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`[{"output":"hi back"}]`))
	}))
	defer srv.Close()

	reply, err := newTestClient(srv.URL).Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reply != "hi back" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if got.Message != "hello" || got.User != "Test User" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if got.Timestamp != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected timestamp: %q", got.Timestamp)
	}
	if contentType != "application/json" {
		t.Fatalf("unexpected content type: %q", contentType)
	}
	if agent != userAgent {
		t.Fatalf("unexpected user agent: %q", agent)
	}
}

func TestClient_Send_NotRegistered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":404,"message":"The requested webhook \"chat\" is not registered."}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Send(context.Background(), "hello")
	if !errors.Is(err, ErrWebhookNotActive) {
		t.Fatalf("expected ErrWebhookNotActive, got %v", err)
	}
}

func TestClient_Send_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"plain 404", http.StatusNotFound, `{"message":"gone"}`},
		{"404 with non-json body", http.StatusNotFound, `not registered`},
		{"404 with non-string message", http.StatusNotFound, `{"message":42}`},
		{"server error", http.StatusInternalServerError, `boom`},
		{"bad gateway", http.StatusBadGateway, ``},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Send(context.Background(), "hello")

			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("expected *StatusError, got %v", err)
			}
			if statusErr.Status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, statusErr.Status)
			}
		})
	}
}

func TestClient_Send_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Send(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for non-JSON response")
	}
}

func TestClient_Send_NoURL(t *testing.T) {
	_, err := newTestClient("").Send(context.Background(), "hello")
	if !errors.Is(err, ErrNoWebhookURL) {
		t.Fatalf("expected ErrNoWebhookURL, got %v", err)
	}
}

func TestClient_Send_URLReadPerCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"ok"`))
	}))
	defer srv.Close()

	c := NewClient(func() string {
		calls++
		return srv.URL
	}, "Test User", nil)

	c.Send(context.Background(), "one")
	c.Send(context.Background(), "two")

	if calls != 2 {
		t.Fatalf("expected URL source to be read twice, got %d", calls)
	}
}
