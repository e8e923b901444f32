package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"relaychat-backend/internal/models"
)

const userAgent = "Bharani-AI-Assistant/1.0"

// maxBodyBytes caps how much of a webhook response is read.
const maxBodyBytes = 4 << 20

var (
	// ErrNoWebhookURL means no webhook address is configured.
	ErrNoWebhookURL = errors.New("webhook URL is not configured")

	// ErrWebhookNotActive is returned for n8n test webhooks that have not been
	// armed with "Execute workflow" yet.
	ErrWebhookNotActive = errors.New("webhook is not registered")
)

// StatusError is a non-2xx answer from the webhook.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook responded with status: %d - %s", e.Status, e.Body)
}

// URLSource yields the webhook address. It is consulted on every Send.
type URLSource func() string

type Client struct {
	httpClient *http.Client
	url        URLSource
	user       string
	now        func() time.Time
}

func NewClient(url URLSource, user string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient: httpClient,
		url:        url,
		user:       user,
		now:        time.Now,
	}
}

// Send relays one user message and returns the extracted, uncleaned reply text.
func (c *Client) Send(ctx context.Context, message string) (string, error) {
	url := c.url()
	if url == "" {
		return "", ErrNoWebhookURL
	}

	payload, err := json.Marshal(models.WebhookPayload{
		Message:   message,
		User:      c.user,
		Timestamp: c.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	log.Debug().Str("url", url).Str("user", c.user).Msg("sending request to webhook")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read webhook response: %w", err)
	}

	log.Debug().Int("status", resp.StatusCode).Msg("webhook responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().Int("status", resp.StatusCode).Str("body", string(body)).Msg("webhook error response")
		if resp.StatusCode == http.StatusNotFound && notRegistered(body) {
			return "", ErrWebhookNotActive
		}
		return "", &StatusError{Status: resp.StatusCode, Body: string(body)}
	}

	reply, err := ExtractReply(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse webhook response: %w", err)
	}
	return reply, nil
}

func notRegistered(body []byte) bool {
	var data struct {
		Message interface{} `json:"message"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return false
	}
	msg, ok := data.Message.(string)
	return ok && strings.Contains(msg, "not registered")
}
