package conversation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"relaychat-backend/internal/models"
)

type stubSender struct {
	result *SendResult
	err    error
	calls  []string
	during func()
}

func (s *stubSender) Send(ctx context.Context, message string) (*SendResult, error) {
	s.calls = append(s.calls, message)
	if s.during != nil {
		s.during()
	}
	return s.result, s.err
}

func fixedClock(c *Conversation) {
	at := time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return at }
}

func TestNew_SeedsGreeting(t *testing.T) {
	c := New(&stubSender{}, DefaultGreeting)

	msgs := c.Messages()
	if len(msgs) != 1 || msgs[0].Role != models.RoleAssistant || msgs[0].Content != DefaultGreeting {
		t.Fatalf("unexpected initial transcript: %+v", msgs)
	}
}

func TestSubmit_AppendsUserThenAssistant(t *testing.T) {
	sender := &stubSender{result: &SendResult{Response: "hi there"}}
	c := New(sender, DefaultGreeting)
	fixedClock(c)

	reply, err := c.Submit(context.Background(), "  hello  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := c.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[1].Role != models.RoleUser || msgs[1].Content != "hello" {
		t.Fatalf("unexpected user message: %+v", msgs[1])
	}
	if msgs[2].Role != models.RoleAssistant || msgs[2].Content != "hi there" {
		t.Fatalf("unexpected assistant message: %+v", msgs[2])
	}
	if reply.ID != msgs[2].ID {
		t.Fatalf("returned reply does not match transcript")
	}
	if sender.calls[0] != "hello" {
		t.Fatalf("expected trimmed text to be sent, got %q", sender.calls[0])
	}
	if msgs[1].ID == msgs[2].ID {
		t.Fatalf("user and assistant ids must differ")
	}
}

func TestSubmit_AssistantIDTakenWhenReplyArrives(t *testing.T) {
	sender := &stubSender{result: &SendResult{Response: "later"}}
	c := New(sender, DefaultGreeting)

	sentAt := time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC)
	repliedAt := sentAt.Add(1500 * time.Millisecond)
	now := sentAt
	c.now = func() time.Time { return now }
	sender.during = func() { now = repliedAt }

	reply, err := c.Submit(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := c.Messages()
	if msgs[1].ID != strconv.FormatInt(sentAt.UnixMilli(), 10) {
		t.Fatalf("unexpected user id %q", msgs[1].ID)
	}
	if reply.ID != strconv.FormatInt(repliedAt.UnixMilli()+1, 10) {
		t.Fatalf("expected assistant id from reply time, got %q", reply.ID)
	}
	if !reply.Timestamp.Equal(repliedAt) {
		t.Fatalf("unexpected assistant timestamp %s", reply.Timestamp)
	}
}

func TestSubmit_MultipleTurnsStayOrdered(t *testing.T) {
	sender := &stubSender{result: &SendResult{Response: "ok"}}
	c := New(sender, DefaultGreeting)

	for _, text := range []string{"one", "two", "three"} {
		if _, err := c.Submit(context.Background(), text); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	msgs := c.Messages()
	if len(msgs) != 7 {
		t.Fatalf("expected 7 messages, got %d", len(msgs))
	}
	for i := 1; i < len(msgs); i += 2 {
		if msgs[i].Role != models.RoleUser || msgs[i+1].Role != models.RoleAssistant {
			t.Fatalf("turn at %d out of order: %s, %s", i, msgs[i].Role, msgs[i+1].Role)
		}
	}
}

func TestSubmit_ReplyFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		result   *SendResult
		err      error
		expected string
	}{
		{"uses response", &SendResult{Response: "r", Message: "m"}, nil, "r"},
		{"falls back to message", &SendResult{Message: "m"}, nil, "m"},
		{"nothing usable", &SendResult{}, nil, NoReplyFallback},
		{"transport error", nil, errors.New("boom"), SubmitErrorText},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := New(&stubSender{result: tc.result, err: tc.err}, DefaultGreeting)
			c.Submit(context.Background(), "hi")

			msgs := c.Messages()
			if len(msgs) != 3 {
				t.Fatalf("expected exactly one user and one assistant message, got %d total", len(msgs))
			}
			if msgs[2].Content != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, msgs[2].Content)
			}
		})
	}
}

func TestSubmit_EmptyInputIsIgnored(t *testing.T) {
	sender := &stubSender{result: &SendResult{Response: "x"}}
	c := New(sender, DefaultGreeting)

	if _, err := c.Submit(context.Background(), "   "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if len(c.Messages()) != 1 || len(sender.calls) != 0 {
		t.Fatalf("empty input must not change the transcript")
	}
}

func TestSubmit_BusyRejectsSecondSubmission(t *testing.T) {
	sender := &stubSender{result: &SendResult{Response: "x"}}
	c := New(sender, DefaultGreeting)

	var nestedErr error
	sender.during = func() {
		if !c.Busy() {
			t.Errorf("expected conversation to be busy while sending")
		}
		_, nestedErr = c.Submit(context.Background(), "second")
	}

	c.Submit(context.Background(), "first")

	if !errors.Is(nestedErr, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", nestedErr)
	}
	if c.Busy() {
		t.Fatalf("busy flag must be cleared after the reply")
	}
	if len(c.Messages()) != 3 {
		t.Fatalf("expected one turn only, got %d messages", len(c.Messages()))
	}
}

func TestHTTPSender(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"pong"}`))
	}))
	defer srv.Close()

	result, err := NewHTTPSender(srv.URL+"/", "tok", nil).Send(context.Background(), "ping")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Response != "pong" {
		t.Fatalf("unexpected response %q", result.Response)
	}
	if auth != "Bearer tok" {
		t.Fatalf("unexpected authorization header %q", auth)
	}
}

func TestHTTPSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to process your request","response":"sorry"}`))
	}))
	defer srv.Close()

	if _, err := NewHTTPSender(srv.URL, "", nil).Send(context.Background(), "ping"); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
