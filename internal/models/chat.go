package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single turn in a conversation.
type ChatMessage struct {
	ID        string     `json:"id"`
	SessionID *uuid.UUID `json:"session_id,omitempty"`
	Role      string     `json:"role"` // "user" or "assistant"
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is a successful reply.
type ChatResponse struct {
	Response string `json:"response"`
}

// ChatErrorResponse carries an error tag plus optional text the UI can still show.
type ChatErrorResponse struct {
	Error    string `json:"error"`
	Response string `json:"response,omitempty"`
}

// WebhookPayload is what gets POSTed to the automation webhook.
type WebhookPayload struct {
	Message   string `json:"message"`
	User      string `json:"user"`
	Timestamp string `json:"timestamp"`
}

type HistoryResponse struct {
	Messages []ChatMessage `json:"messages"`
}
