// Package notify delivers alerts when a validation run finds anomalies.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"idxval/internal/engine"
)

// Notifier is told about validation runs that produced findings. Delivery is
// best effort; a failed alert never fails the run.
type Notifier interface {
	Alert(ctx context.Context, res *engine.Result) error
}

// NoopNotifier discards all alerts. Used when alerting is not configured.
type NoopNotifier struct{}

func (NoopNotifier) Alert(context.Context, *engine.Result) error { return nil }

// alertPayload is the wire shape of a webhook alert.
type alertPayload struct {
	Subject   string         `json:"subject"`
	TableName string         `json:"table_name"`
	Status    string         `json:"status"`
	Anomalies int            `json:"anomalies_count"`
	Timestamp time.Time      `json:"timestamp"`
	Result    *engine.Result `json:"result"`
}

// WebhookNotifier POSTs the full validation result to a configured URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewWebhookNotifier builds a notifier for the given endpoint. A zero timeout
// defaults to 10 seconds.
func NewWebhookNotifier(url string, timeout time.Duration, logger *slog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(slog.String("component", "webhook_notifier")),
	}
}

// Alert sends one alert for the result. Runs without findings are skipped.
func (n *WebhookNotifier) Alert(ctx context.Context, res *engine.Result) error {
	if res == nil || res.FindingsCount == 0 {
		return nil
	}

	payload := alertPayload{
		Subject:   fmt.Sprintf("Data Anomaly Alert: %s", res.TableName),
		TableName: res.TableName,
		Status:    string(res.Status),
		Anomalies: res.FindingsCount,
		Timestamp: time.Now().UTC(),
		Result:    res,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("alert endpoint returned %d", resp.StatusCode)
	}

	n.logger.Info("anomaly alert delivered",
		slog.String("table", res.TableName),
		slog.Int("anomalies", res.FindingsCount))
	return nil
}
