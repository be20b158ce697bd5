package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
	"github.com/ankit6686510/buy-sell-sub001/internal/provider"
)

// Client wraps the Razorpay REST API. No business logic lives here; every
// network failure is surfaced as a *domain.GatewayError and never retried.
type Client struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	HttpClient    *http.Client
}

func NewClient(baseURL, keyID, keySecret, webhookSecret string) *Client {
	return &Client{
		BaseURL:       baseURL,
		KeyID:         keyID,
		KeySecret:     keySecret,
		WebhookSecret: webhookSecret,
		HttpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

var _ provider.Gateway = (*Client)(nil)

func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*provider.Order, error) {
	body := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		body["notes"] = notes
	}

	var order provider.Order
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*provider.Payment, error) {
	var p provider.Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) FetchOrder(ctx context.Context, orderID string) (*provider.Order, error) {
	var o provider.Order
	if err := c.do(ctx, http.MethodGet, "/v1/orders/"+orderID, nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) Refund(ctx context.Context, paymentID string, amount int64, reason string) (*provider.Refund, error) {
	body := map[string]interface{}{
		"amount": amount,
	}
	if reason != "" {
		body["notes"] = map[string]string{"reason": reason}
	}

	var rf provider.Refund
	if err := c.do(ctx, http.MethodPost, "/v1/payments/"+paymentID+"/refund", body, &rf); err != nil {
		return nil, err
	}
	return &rf, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &domain.GatewayError{Op: path, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return &domain.GatewayError{Op: path, Err: err}
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return &domain.GatewayError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return &domain.GatewayError{
			Op:         path,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", string(raw)),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &domain.GatewayError{Op: path, StatusCode: resp.StatusCode, Err: err}
		}
	}
	return nil
}
