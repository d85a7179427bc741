package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/orderhub/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Config holds alert channel endpoints
type Config struct {
	WebhookURL  string
	EmailAPIURL string
	EmailTo     string
	Timeout     time.Duration
}

// HTTPNotifier implements shared.AlertNotifier over two HTTP endpoints: a
// chat webhook for the low-friction channel and an email API for the
// high-severity one. Both are best-effort; a notification failure is logged
// and never surfaced to the caller.
type HTTPNotifier struct {
	client *http.Client
	cfg    Config
	logger *zap.Logger
}

// NewHTTPNotifier creates a notifier with its own HTTP client
func NewHTTPNotifier(cfg Config, logger *zap.Logger) *HTTPNotifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPNotifier{
		client: &http.Client{Timeout: timeout},
		cfg:    cfg,
		logger: logger,
	}
}

type webhookPayload struct {
	Category      string    `json:"category"`
	Error         string    `json:"error"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}

type emailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NotifyLow posts to the chat webhook
func (n *HTTPNotifier) NotifyLow(ctx context.Context, category, errMsg, correlationID string) {
	if n.cfg.WebhookURL == "" {
		n.logger.Debug("webhook alert channel not configured, dropping alert",
			zap.String("category", category))
		return
	}

	payload := webhookPayload{
		Category:      category,
		Error:         errMsg,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
	}

	if err := n.post(ctx, n.cfg.WebhookURL, payload); err != nil {
		n.logger.Error("failed to send webhook alert",
			zap.String("category", category),
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
	}
}

// NotifyHigh posts to the email API
func (n *HTTPNotifier) NotifyHigh(ctx context.Context, category, errMsg, correlationID string) {
	if n.cfg.EmailAPIURL == "" {
		n.logger.Debug("email alert channel not configured, dropping alert",
			zap.String("category", category))
		return
	}

	payload := emailPayload{
		To:      n.cfg.EmailTo,
		Subject: fmt.Sprintf("Message Processing Error: %s", category),
		Body: fmt.Sprintf("Correlation ID: %s\nError: %s\nTimestamp: %s",
			correlationID, errMsg, time.Now().UTC().Format(time.RFC3339)),
	}

	if err := n.post(ctx, n.cfg.EmailAPIURL, payload); err != nil {
		n.logger.Error("failed to send email alert",
			zap.String("category", category),
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
	}
}

func (n *HTTPNotifier) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("alert endpoint returned status %d", resp.StatusCode)
	}

	return nil
}

// Ensure HTTPNotifier implements AlertNotifier
var _ shared.AlertNotifier = (*HTTPNotifier)(nil)
