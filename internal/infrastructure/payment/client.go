package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Client charges orders against a downstream payment provider over HTTP.
// With no APIURL configured every charge succeeds, which keeps local
// development free of a payment dependency.
type Client struct {
	client *http.Client
	apiURL string
	logger *zap.Logger
}

// NewClient creates a payment client
func NewClient(apiURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		client: &http.Client{Timeout: timeout},
		apiURL: apiURL,
		logger: logger,
	}
}

type chargeRequest struct {
	OrderID string `json:"order_id"`
	Amount  string `json:"amount"`
}

// Charge requests payment for an order
func (c *Client) Charge(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) error {
	if c.apiURL == "" {
		c.logger.Debug("payment provider not configured, accepting charge",
			zap.String("order_id", orderID.String()))
		return nil
	}

	body, err := json.Marshal(chargeRequest{
		OrderID: orderID.String(),
		Amount:  amount.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal charge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("payment request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}

	return nil
}
