package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"relaychat-backend/internal/middleware"
	"relaychat-backend/internal/models"
	"relaychat-backend/internal/services"
)

type stubReplier struct{ reply string }

func (s *stubReplier) Send(ctx context.Context, message string) (string, error) {
	return s.reply, nil
}

func dial(t *testing.T, srvURL, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srvURL, "http") + "/?token=" + token
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return c
}

func readEvent(t *testing.T, c *websocket.Conn) map[string]interface{} {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var event map[string]interface{}
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("bad event %q: %v", data, err)
	}
	return event
}

func waitForConnections(t *testing.T, h *Hub, id uuid.UUID, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for h.Connections(id) != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d connections, have %d", n, h.Connections(id))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_ReplyReachesEveryTab(t *testing.T) {
	jwtAuth := middleware.NewJWTAuth("secret")
	hub := NewHub(nil, jwtAuth)
	chat := services.NewChatService(&stubReplier{reply: "**hi** there"}, nil, hub, time.Second)

	srv := httptest.NewServer(hub.Handler(chat))
	defer srv.Close()

	sessionID := uuid.New()
	token, _ := jwtAuth.GenerateSessionToken(sessionID, time.Now().Add(time.Hour))

	first := dial(t, srv.URL, token)
	defer first.Close()
	second := dial(t, srv.URL, token)
	defer second.Close()
	waitForConnections(t, hub, sessionID, 2)

	if err := first.WriteJSON(models.ChatRequest{Message: "hello"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	for _, c := range []*websocket.Conn{first, second} {
		event := readEvent(t, c)
		if event["type"] != "reply" {
			t.Fatalf("expected reply event, got %v", event)
		}
		payload := event["payload"].(map[string]interface{})
		if payload["response"] != "**hi** there" {
			t.Fatalf("unexpected response %v", payload["response"])
		}
		words := payload["words"].([]interface{})
		if words[0] != "<strong>hi</strong>" {
			t.Fatalf("unexpected words %v", words)
		}
	}
}

func TestHub_EmptyMessageErrorsOnlyToSender(t *testing.T) {
	jwtAuth := middleware.NewJWTAuth("secret")
	hub := NewHub(nil, jwtAuth)
	chat := services.NewChatService(&stubReplier{reply: "x"}, nil, hub, time.Second)

	srv := httptest.NewServer(hub.Handler(chat))
	defer srv.Close()

	sessionID := uuid.New()
	token, _ := jwtAuth.GenerateSessionToken(sessionID, time.Now().Add(time.Hour))
	c := dial(t, srv.URL, token)
	defer c.Close()

	c.WriteJSON(models.ChatRequest{Message: ""})

	event := readEvent(t, c)
	if event["type"] != "error" {
		t.Fatalf("expected error event, got %v", event)
	}
}

func TestHub_RejectsMissingToken(t *testing.T) {
	hub := NewHub(nil, middleware.NewJWTAuth("secret"))
	srv := httptest.NewServer(hub.Handler(services.NewChatService(&stubReplier{}, nil, hub, 0)))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("expected 401 response, got %v", resp)
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	jwtAuth := middleware.NewJWTAuth("secret")
	hub := NewHub(nil, jwtAuth)
	srv := httptest.NewServer(hub.Handler(services.NewChatService(&stubReplier{}, nil, hub, 0)))
	defer srv.Close()

	sessionID := uuid.New()
	token, _ := jwtAuth.GenerateSessionToken(sessionID, time.Now().Add(time.Hour))
	c := dial(t, srv.URL, token)
	waitForConnections(t, hub, sessionID, 1)

	c.Close()
	waitForConnections(t, hub, sessionID, 0)
}
