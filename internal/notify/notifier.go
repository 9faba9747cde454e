// Package notify delivers crisis alerts to an external admin channel.
// Delivery is fire-and-forget: failures are logged, never propagated to the
// request path that produced the alert.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vetsupport/companion/internal/config"
	"github.com/vetsupport/companion/internal/logging"
)

// CrisisAlert is the payload handed to the admin notification sink.
type CrisisAlert struct {
	Channel      string   `json:"channel"`
	UserID       int64    `json:"user_id"`
	Confidence   float64  `json:"confidence"`
	MatchedTerms []string `json:"matched_terms"`
	Excerpt      string   `json:"excerpt"`
	Timestamp    string   `json:"timestamp"`
}

// Notifier sends alerts to the admin channel.
type Notifier interface {
	Notify(ctx context.Context, alert *CrisisAlert)
}

// LogNotifier writes alerts to the log only. Used when no webhook is
// configured.
type LogNotifier struct {
	log *logging.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(log *logging.Logger) *LogNotifier {
	return &LogNotifier{log: log.WithComponent("notify")}
}

// Notify logs the alert.
func (n *LogNotifier) Notify(_ context.Context, alert *CrisisAlert) {
	n.log.WithField("user_id", alert.UserID).
		WithField("confidence", alert.Confidence).
		Warn("crisis alert: %d matched terms", len(alert.MatchedTerms))
}

// WebhookNotifier posts alerts as JSON to a configured webhook URL.
type WebhookNotifier struct {
	url     string
	channel string
	client  *http.Client
	log     *logging.Logger
}

// NewWebhookNotifier creates a webhook notifier from configuration.
func NewWebhookNotifier(cfg config.NotifyConfig, log *logging.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:     cfg.WebhookURL,
		channel: cfg.Channel,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		log:     log.WithComponent("notify"),
	}
}

// Notify posts the alert. Errors are logged and swallowed.
func (n *WebhookNotifier) Notify(ctx context.Context, alert *CrisisAlert) {
	alert.Channel = n.channel

	body, err := json.Marshal(alert)
	if err != nil {
		n.log.Err(err, "marshal crisis alert")
		return
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.url, bytes.NewReader(body))
	if err != nil {
		n.log.Err(err, "create alert request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Err(err, "deliver crisis alert")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.log.Err(fmt.Errorf("status %d", resp.StatusCode), "crisis alert rejected by webhook")
	}
}

// FromConfig returns a webhook notifier when a URL is configured, otherwise
// a log-only notifier.
func FromConfig(cfg config.NotifyConfig, log *logging.Logger) Notifier {
	if cfg.WebhookURL != "" {
		return NewWebhookNotifier(cfg, log)
	}
	return NewLogNotifier(log)
}
