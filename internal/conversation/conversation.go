// Package conversation is the client side of a chat: an ordered message list that
// gains exactly one user and one assistant message per submitted turn.
package conversation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"relaychat-backend/internal/models"
)

const (
	DefaultGreeting = "Hello Rayudu Bharani! I'm your personal AI assistant. How can I help you today?"

	// NoReplyFallback is shown when the server answered without any text.
	NoReplyFallback = "I apologize, but I couldn't generate a proper response."

	// SubmitErrorText is shown when the request itself failed.
	SubmitErrorText = "I apologize, but I encountered an error. Please try again."
)

var (
	ErrEmptyInput = errors.New("input is empty")
	ErrBusy       = errors.New("a message is already being sent")
)

// SendResult is the decoded body of a chat endpoint reply.
type SendResult struct {
	Response string `json:"response"`
	Message  string `json:"message"`
}

// Sender delivers one message to the chat endpoint.
type Sender interface {
	Send(ctx context.Context, message string) (*SendResult, error)
}

type Conversation struct {
	mu       sync.Mutex
	sender   Sender
	messages []models.ChatMessage
	busy     bool
	now      func() time.Time
}

// New starts a conversation with a single assistant greeting.
func New(sender Sender, greeting string) *Conversation {
	c := &Conversation{sender: sender, now: time.Now}
	c.messages = append(c.messages, models.ChatMessage{
		ID:        "1",
		Role:      models.RoleAssistant,
		Content:   greeting,
		Timestamp: c.now(),
	})
	return c
}

// Messages returns a copy of the transcript in order.
func (c *Conversation) Messages() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Busy reports whether a submission is in flight; input stays disabled meanwhile.
func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Submit sends input and appends the user message followed by the assistant reply.
// The returned message is the assistant's. Empty input and submissions while busy
// change nothing.
func (c *Conversation) Submit(ctx context.Context, input string) (models.ChatMessage, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return models.ChatMessage{}, ErrEmptyInput
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return models.ChatMessage{}, ErrBusy
	}
	c.busy = true
	sentAt := c.now()
	c.messages = append(c.messages, models.ChatMessage{
		ID:        strconv.FormatInt(sentAt.UnixMilli(), 10),
		Role:      models.RoleUser,
		Content:   text,
		Timestamp: sentAt,
	})
	c.mu.Unlock()

	content := SubmitErrorText
	result, err := c.sender.Send(ctx, text)
	if err == nil {
		content = replyContent(result)
	}

	repliedAt := c.now()
	reply := models.ChatMessage{
		ID:        strconv.FormatInt(repliedAt.UnixMilli()+1, 10),
		Role:      models.RoleAssistant,
		Content:   content,
		Timestamp: repliedAt,
	}

	c.mu.Lock()
	c.messages = append(c.messages, reply)
	c.busy = false
	c.mu.Unlock()

	return reply, err
}

func replyContent(result *SendResult) string {
	switch {
	case result == nil:
		return NoReplyFallback
	case result.Response != "":
		return result.Response
	case result.Message != "":
		return result.Message
	default:
		return NoReplyFallback
	}
}
