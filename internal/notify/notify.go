// Package notify delivers alert and report notifications: always as an
// in-app notification row, optionally to an outbound webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/askerp/askerp-server/internal/platform/logger"
	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/internal/store/model"
)

type Notifier struct {
	repo       store.NotificationRepository
	webhookURL string
	httpClient *http.Client
}

func New(repo store.NotificationRepository, webhookURL string) *Notifier {
	return &Notifier{
		repo:       repo,
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Message is one notification to deliver.
type Message struct {
	ForUser      string
	Type         string // Alert, Briefing, Report
	Subject      string
	Body         string
	DocumentType string
	DocumentName string
}

// Send persists the notification row and, when a webhook is configured,
// posts it outbound. The webhook is best effort: a delivery failure is
// logged but never fails the caller.
func (n *Notifier) Send(ctx context.Context, msg Message) error {
	row := &model.Notification{
		ID:           uuid.NewString(),
		ForUser:      msg.ForUser,
		Type:         msg.Type,
		Subject:      msg.Subject,
		Body:         msg.Body,
		DocumentType: msg.DocumentType,
		DocumentName: msg.DocumentName,
	}
	if err := n.repo.Create(ctx, row); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	if n.webhookURL != "" {
		if err := n.postWebhook(ctx, msg); err != nil {
			logger.Warn("webhook delivery failed",
				zap.String("type", msg.Type), zap.String("user", msg.ForUser), zap.Error(err))
		}
	}
	return nil
}

func (n *Notifier) postWebhook(ctx context.Context, msg Message) error {
	payload := map[string]string{
		"user":    msg.ForUser,
		"type":    msg.Type,
		"subject": msg.Subject,
		"body":    msg.Body,
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
	if res.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d: %s", res.StatusCode, string(body))
	}
	return nil
}
