package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"service-booking/pkg/utils"

	"go.uber.org/zap"
)

// Order is the gateway-side order a checkout session binds to.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Refund is the gateway-side refund record.
type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// Client talks to the external payment gateway. Implementations must be
// safe for concurrent use.
type Client interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error)
	CreateRefund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*Refund, error)
}

type httpClient struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
	log       *zap.Logger
}

// NewHTTPClient builds a Client over the gateway's REST API using HTTP
// Basic auth with the key pair.
func NewHTTPClient(cfg utils.GatewayConfig, log *zap.Logger) Client {
	return &httpClient{
		baseURL:   cfg.BaseURL,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		log: log.With(zap.String("component", "payment_gateway")),
	}
}

func (c *httpClient) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	payload := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		payload["notes"] = notes
	}

	var order Order
	if err := c.post(ctx, "/orders", payload, &order); err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	c.log.Info("Gateway order created",
		zap.String("gateway_order_id", order.ID),
		zap.Int64("amount", amount),
		zap.String("currency", currency),
	)
	return &order, nil
}

func (c *httpClient) CreateRefund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*Refund, error) {
	payload := map[string]interface{}{
		"amount": amount,
	}
	if len(notes) > 0 {
		payload["notes"] = notes
	}

	var refund Refund
	path := fmt.Sprintf("/payments/%s/refund", paymentID)
	if err := c.post(ctx, path, payload, &refund); err != nil {
		return nil, fmt.Errorf("create gateway refund for payment %s: %w", paymentID, err)
	}

	c.log.Info("Gateway refund created",
		zap.String("refund_id", refund.ID),
		zap.String("gateway_payment_id", paymentID),
		zap.Int64("amount", amount),
	)
	return &refund, nil
}

func (c *httpClient) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("Gateway returned error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
