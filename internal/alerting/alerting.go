// Package alerting decides when a score movement warrants a notification
// and delivers it over Slack and signed webhooks.
package alerting

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sitepulse/sitepulse/internal/config"
)

// DropThreshold is the minimum points the overall or health score must
// fall between consecutive audits before an alert fires.
const DropThreshold = 10

// ScoreDropEvent describes a score regression between two audits.
type ScoreDropEvent struct {
	URL            string `json:"url"`
	OldScore       int    `json:"old_score"`
	NewScore       int    `json:"new_score"`
	OldHealthScore *int   `json:"old_health_score,omitempty"`
	NewHealthScore *int   `json:"new_health_score,omitempty"`
}

// AuditCompleteEvent reports a finished scheduled audit.
type AuditCompleteEvent struct {
	URL         string `json:"url"`
	AuditID     string `json:"audit_id"`
	Score       int    `json:"score"`
	HealthScore int    `json:"health_score"`
	Fallback    bool   `json:"fallback"`
}

// ShouldAlert reports whether the movement between two audits crosses the
// drop threshold on either the overall or the health score.
func ShouldAlert(event ScoreDropEvent) bool {
	if event.OldScore-event.NewScore >= DropThreshold {
		return true
	}
	if event.OldHealthScore != nil && event.NewHealthScore != nil &&
		*event.OldHealthScore-*event.NewHealthScore >= DropThreshold {
		return true
	}
	return false
}

// Notifier delivers alert events.
type Notifier struct {
	cfg        config.AlertingConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewNotifier creates a notifier from alerting config.
func NewNotifier(cfg config.AlertingConfig, logger *zap.Logger) *Notifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// NotifyScoreDrop sends the score-drop event on every configured channel.
// Delivery failures are logged and returned combined; one failing channel
// does not block the others.
func (n *Notifier) NotifyScoreDrop(ctx context.Context, event ScoreDropEvent) error {
	var firstErr error

	if n.cfg.SlackWebhookURL != "" {
		if err := n.sendSlack(ctx, scoreDropSlackMessage(event)); err != nil {
			n.logger.Error("slack score-drop alert failed", zap.String("url", event.URL), zap.Error(err))
			firstErr = err
		}
	}

	if n.cfg.WebhookURL != "" {
		if err := n.sendWebhook(ctx, "score_drop", event); err != nil {
			n.logger.Error("webhook score-drop alert failed", zap.String("url", event.URL), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// NotifyAuditComplete sends the audit-complete event for scheduled runs.
func (n *Notifier) NotifyAuditComplete(ctx context.Context, event AuditCompleteEvent) error {
	if n.cfg.WebhookURL == "" {
		return nil
	}
	if err := n.sendWebhook(ctx, "audit_complete", event); err != nil {
		n.logger.Error("webhook audit-complete failed", zap.String("url", event.URL), zap.Error(err))
		return err
	}
	return nil
}

// SlackMessage represents a Slack webhook message
type SlackMessage struct {
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment is a Slack message attachment
type SlackAttachment struct {
	Color  string       `json:"color,omitempty"`
	Title  string       `json:"title,omitempty"`
	Text   string       `json:"text,omitempty"`
	Fields []SlackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	Ts     json.Number  `json:"ts,omitempty"`
}

// SlackField is a field in a Slack attachment
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func scoreDropSlackMessage(event ScoreDropEvent) *SlackMessage {
	fields := []SlackField{
		{Title: "Score", Value: fmt.Sprintf("%d → %d", event.OldScore, event.NewScore), Short: true},
	}
	if event.OldHealthScore != nil && event.NewHealthScore != nil {
		fields = append(fields, SlackField{
			Title: "Health",
			Value: fmt.Sprintf("%d → %d", *event.OldHealthScore, *event.NewHealthScore),
			Short: true,
		})
	}

	return &SlackMessage{
		Attachments: []SlackAttachment{
			{
				Color:  "#dc3545",
				Title:  "UX score dropped",
				Text:   event.URL,
				Fields: fields,
				Footer: "SitePulse",
				Ts:     json.Number(fmt.Sprintf("%d", time.Now().Unix())),
			},
		},
	}
}

func (n *Notifier) sendSlack(ctx context.Context, msg *SlackMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.cfg.SlackWebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// webhookEnvelope wraps an event with its type and timestamp.
type webhookEnvelope struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

func (n *Notifier) sendWebhook(ctx context.Context, event string, data any) error {
	body, err := json.Marshal(webhookEnvelope{
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "SitePulse/1.0")

	if n.cfg.WebhookSecret != "" {
		sig := hmac.New(sha256.New, []byte(n.cfg.WebhookSecret))
		sig.Write(body)
		req.Header.Set("X-SitePulse-Signature", hex.EncodeToString(sig.Sum(nil)))
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
