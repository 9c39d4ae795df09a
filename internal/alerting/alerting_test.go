package alerting

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/sitepulse/sitepulse/internal/config"
)

func intPtr(n int) *int { return &n }

func TestShouldAlert(t *testing.T) {
	tests := []struct {
		name  string
		event ScoreDropEvent
		want  bool
	}{
		{
			name:  "overall score drop at threshold",
			event: ScoreDropEvent{OldScore: 80, NewScore: 70},
			want:  true,
		},
		{
			name:  "overall score drop below threshold",
			event: ScoreDropEvent{OldScore: 80, NewScore: 71},
			want:  false,
		},
		{
			name:  "score improved",
			event: ScoreDropEvent{OldScore: 60, NewScore: 85},
			want:  false,
		},
		{
			name: "health-only drop",
			event: ScoreDropEvent{
				OldScore: 70, NewScore: 68,
				OldHealthScore: intPtr(75), NewHealthScore: intPtr(60),
			},
			want: true,
		},
		{
			name: "health drop below threshold",
			event: ScoreDropEvent{
				OldScore: 70, NewScore: 68,
				OldHealthScore: intPtr(75), NewHealthScore: intPtr(70),
			},
			want: false,
		},
		{
			name: "missing health side is ignored",
			event: ScoreDropEvent{
				OldScore: 70, NewScore: 68,
				OldHealthScore: intPtr(90),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldAlert(tt.event); got != tt.want {
				t.Errorf("ShouldAlert(%+v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestNotifyScoreDropSlack(t *testing.T) {
	var got SlackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding slack message: %v", err)
		}
	}))
	defer srv.Close()

	n := NewNotifier(config.AlertingConfig{SlackWebhookURL: srv.URL}, zap.NewNop())
	event := ScoreDropEvent{
		URL:      "https://example.com",
		OldScore: 82, NewScore: 64,
		OldHealthScore: intPtr(78), NewHealthScore: intPtr(61),
	}
	if err := n.NotifyScoreDrop(context.Background(), event); err != nil {
		t.Fatalf("NotifyScoreDrop: %v", err)
	}

	if len(got.Attachments) != 1 {
		t.Fatalf("attachments = %+v, want 1", got.Attachments)
	}
	att := got.Attachments[0]
	if att.Text != "https://example.com" {
		t.Errorf("attachment text = %q", att.Text)
	}
	if len(att.Fields) != 2 {
		t.Fatalf("fields = %+v, want score and health", att.Fields)
	}
	if att.Fields[0].Value != "82 → 64" {
		t.Errorf("score field = %q", att.Fields[0].Value)
	}
	if att.Fields[1].Value != "78 → 61" {
		t.Errorf("health field = %q", att.Fields[1].Value)
	}
}

func TestNotifyScoreDropWebhookSigned(t *testing.T) {
	const secret = "shh"
	var gotBody []byte
	var gotSig, gotAgent string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-SitePulse-Signature")
		gotAgent = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	n := NewNotifier(config.AlertingConfig{WebhookURL: srv.URL, WebhookSecret: secret}, zap.NewNop())
	event := ScoreDropEvent{URL: "https://example.com", OldScore: 80, NewScore: 60}
	if err := n.NotifyScoreDrop(context.Background(), event); err != nil {
		t.Fatalf("NotifyScoreDrop: %v", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	if want := hex.EncodeToString(mac.Sum(nil)); gotSig != want {
		t.Errorf("signature = %q, want %q", gotSig, want)
	}
	if gotAgent != "SitePulse/1.0" {
		t.Errorf("User-Agent = %q", gotAgent)
	}

	var envelope struct {
		Event string         `json:"event"`
		Data  ScoreDropEvent `json:"data"`
	}
	if err := json.Unmarshal(gotBody, &envelope); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	if envelope.Event != "score_drop" {
		t.Errorf("event = %q, want score_drop", envelope.Event)
	}
	if envelope.Data.URL != event.URL || envelope.Data.NewScore != 60 {
		t.Errorf("data = %+v", envelope.Data)
	}
}

func TestNotifyScoreDropWebhookUnsigned(t *testing.T) {
	var sigPresent bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sigPresent = r.Header["X-Sitepulse-Signature"]
	}))
	defer srv.Close()

	n := NewNotifier(config.AlertingConfig{WebhookURL: srv.URL}, zap.NewNop())
	if err := n.NotifyScoreDrop(context.Background(), ScoreDropEvent{OldScore: 80, NewScore: 60}); err != nil {
		t.Fatalf("NotifyScoreDrop: %v", err)
	}
	if sigPresent {
		t.Error("unsigned webhook carried a signature header")
	}
}

func TestNotifyScoreDropReportsDeliveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewNotifier(config.AlertingConfig{WebhookURL: srv.URL}, zap.NewNop())
	if err := n.NotifyScoreDrop(context.Background(), ScoreDropEvent{OldScore: 80, NewScore: 60}); err == nil {
		t.Error("NotifyScoreDrop succeeded against a failing webhook, want error")
	}
}

func TestNotifyScoreDropOneChannelFailing(t *testing.T) {
	var webhookHit bool
	slackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer slackSrv.Close()
	webhookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		webhookHit = true
	}))
	defer webhookSrv.Close()

	n := NewNotifier(config.AlertingConfig{
		SlackWebhookURL: slackSrv.URL,
		WebhookURL:      webhookSrv.URL,
	}, zap.NewNop())

	err := n.NotifyScoreDrop(context.Background(), ScoreDropEvent{OldScore: 80, NewScore: 60})
	if err == nil {
		t.Error("expected the slack failure to surface")
	}
	if !webhookHit {
		t.Error("webhook channel skipped after slack failure")
	}
}

func TestNotifyAuditComplete(t *testing.T) {
	var envelope struct {
		Event string             `json:"event"`
		Data  AuditCompleteEvent `json:"data"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			t.Errorf("decoding envelope: %v", err)
		}
	}))
	defer srv.Close()

	n := NewNotifier(config.AlertingConfig{WebhookURL: srv.URL}, zap.NewNop())
	event := AuditCompleteEvent{URL: "https://example.com", AuditID: "abc", Score: 74, HealthScore: 71}
	if err := n.NotifyAuditComplete(context.Background(), event); err != nil {
		t.Fatalf("NotifyAuditComplete: %v", err)
	}
	if envelope.Event != "audit_complete" {
		t.Errorf("event = %q, want audit_complete", envelope.Event)
	}
	if envelope.Data != event {
		t.Errorf("data = %+v, want %+v", envelope.Data, event)
	}
}

func TestNotifyAuditCompleteNoWebhookConfigured(t *testing.T) {
	n := NewNotifier(config.AlertingConfig{}, zap.NewNop())
	if err := n.NotifyAuditComplete(context.Background(), AuditCompleteEvent{}); err != nil {
		t.Errorf("NotifyAuditComplete with no webhook = %v, want nil", err)
	}
}
