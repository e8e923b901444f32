package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"relaychat-backend/internal/models"
	"relaychat-backend/internal/render"
	"relaychat-backend/internal/webhook"
)

const (
	// WebhookActivationHint is shown when an n8n test webhook has not been armed.
	WebhookActivationHint = "🔧 Your n8n webhook needs to be activated first!\n\n**To fix this:**\n1. Go to your n8n workflow\n2. Click the 'Execute workflow' button\n3. Then try sending your message again\n\n*Note: Test webhooks in n8n only work for one call after activation.*"

	// ServiceApology is the user-facing text for any backend failure.
	ServiceApology = "Sorry, I'm having trouble connecting to my AI service right now. Please try again later."

	// EmptyReplyFallback replaces a reply that is empty once cleaned.
	EmptyReplyFallback = "I received your message but couldn't generate a proper response."
)

// Replier produces the assistant's answer to one user message.
type Replier interface {
	Send(ctx context.Context, message string) (string, error)
}

// TranscriptSink stores chat messages. Implementations must not block on slow storage
// for longer than the request allows.
type TranscriptSink interface {
	Record(ctx context.Context, entry models.TranscriptEntry) error
}

// Publisher delivers WebSocket events to every connection of a session.
type Publisher interface {
	Publish(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage)
}

type Reply struct {
	MessageID string
	Text      string
	NotActive bool
}

type ChatService struct {
	replier   Replier
	sink      TranscriptSink
	publisher Publisher
	timeout   time.Duration
	now       func() time.Time
}

// NewChatService wires the reply backend. sink and publisher may be nil.
func NewChatService(replier Replier, sink TranscriptSink, publisher Publisher, timeout time.Duration) *ChatService {
	return &ChatService{
		replier:   replier,
		sink:      sink,
		publisher: publisher,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Reply runs one chat round trip. A nil sessionID means an anonymous turn that is
// neither stored nor published.
func (s *ChatService) Reply(ctx context.Context, sessionID *uuid.UUID, message string) (*Reply, error) {
	// Whitespace-only text is forwarded; only an empty message is invalid.
	if message == "" {
		return nil, &ValidationError{Fields: map[string]string{"message": "Message is required"}}
	}

	s.record(ctx, sessionID, models.RoleUser, message)

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, err := s.replier.Send(callCtx, message)
	switch {
	case errors.Is(err, webhook.ErrWebhookNotActive):
		log.Warn().Msg("webhook is not active; returning activation hint")
		reply := &Reply{MessageID: s.messageID(), Text: WebhookActivationHint, NotActive: true}
		s.record(ctx, sessionID, models.RoleAssistant, reply.Text)
		s.publishReply(ctx, sessionID, reply)
		return reply, nil

	case err != nil:
		log.Error().Err(err).Msg("chat round trip failed")
		s.record(ctx, sessionID, models.RoleAssistant, ServiceApology)
		s.publishError(ctx, sessionID)
		return nil, &UpstreamError{Err: err}
	}

	text := webhook.CleanReply(raw)
	if text == "" {
		text = EmptyReplyFallback
	}

	reply := &Reply{MessageID: s.messageID(), Text: text}
	s.record(ctx, sessionID, models.RoleAssistant, reply.Text)
	s.publishReply(ctx, sessionID, reply)
	return reply, nil
}

func (s *ChatService) messageID() string {
	return strconv.FormatInt(s.now().UnixMilli(), 10)
}

func (s *ChatService) record(ctx context.Context, sessionID *uuid.UUID, role, content string) {
	if s.sink == nil || sessionID == nil {
		return
	}

	entry := models.TranscriptEntry{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.sink.Record(ctx, entry); err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to record transcript entry")
	}
}

func (s *ChatService) publishReply(ctx context.Context, sessionID *uuid.UUID, reply *Reply) {
	if s.publisher == nil || sessionID == nil {
		return
	}
	s.publisher.Publish(ctx, *sessionID, models.WSMessage{
		Type: "reply",
		Payload: models.ReplyEvent{
			MessageID: reply.MessageID,
			Response:  reply.Text,
			Words:     render.RevealWords(reply.Text, true),
			NotActive: reply.NotActive,
		},
	})
}

func (s *ChatService) publishError(ctx context.Context, sessionID *uuid.UUID) {
	if s.publisher == nil || sessionID == nil {
		return
	}
	s.publisher.Publish(ctx, *sessionID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			ErrorCode:    "UPSTREAM_ERROR",
			ErrorMessage: "Failed to process your request",
			Response:     ServiceApology,
		},
	})
}
