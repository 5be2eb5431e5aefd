// Package notify dispatches the downstream live-stream notification. The
// channel is fire-and-forget: one composed message per live event.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mattjoyce/livegate/internal/secrets"
)

const sendTimeout = 10 * time.Second

// Notification is the composed message for one live event.
type Notification struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// Sender delivers one notification.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// WebhookSender posts the composed notification as JSON to a configured
// webhook URL, with an optional bearer token. Destination and token live in
// the parameter store so they can change without a restart.
type WebhookSender struct {
	params secrets.Store
	client *http.Client
}

func NewWebhookSender(params secrets.Store) *WebhookSender {
	return &WebhookSender{
		params: params,
		client: &http.Client{Timeout: sendTimeout},
	}
}

func (s *WebhookSender) Send(ctx context.Context, n Notification) error {
	destination, err := s.params.Get(ctx, secrets.ParamNotifyURL)
	if err != nil {
		return fmt.Errorf("read notify webhook url: %w", err)
	}
	token, err := s.params.Get(ctx, secrets.ParamNotifyToken)
	if err != nil && !errors.Is(err, secrets.ErrNotFound) {
		return fmt.Errorf("read notify token: %w", err)
	}

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification channel returned status %d", resp.StatusCode)
	}
	return nil
}
