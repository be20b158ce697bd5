// Package fake is an in-process Gateway used by usecase tests. It signs
// and verifies with the same HMAC scheme as the real client, so signature
// paths are exercised for real.
package fake

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/ankit6686510/buy-sell-sub001/internal/provider"
)

type Gateway struct {
	KeySecret     string
	WebhookSecret string

	mu       sync.Mutex
	seq      int
	payments map[string]*provider.Payment
	orders   map[string]*provider.Order

	CreateOrderErr error
	RefundErr      error
	refunds        []provider.Refund
}

func New() *Gateway {
	return &Gateway{
		KeySecret:     "test_key_secret",
		WebhookSecret: "test_webhook_secret",
		payments:      make(map[string]*provider.Payment),
		orders:        make(map[string]*provider.Order),
	}
}

var _ provider.Gateway = (*Gateway)(nil)

func (g *Gateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*provider.Order, error) {
	if g.CreateOrderErr != nil {
		return nil, g.CreateOrderErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	o := &provider.Order{
		ID:       fmt.Sprintf("order_fk%03d", g.seq),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}
	g.orders[o.ID] = o
	return o, nil
}

func (g *Gateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(g.SignPayment(orderID, paymentID)))
}

func (g *Gateway) VerifyWebhookSignature(body []byte, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(g.SignWebhook(body)))
}

func (g *Gateway) SignPayment(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(g.KeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *Gateway) SignWebhook(body []byte) string {
	mac := hmac.New(sha256.New, []byte(g.WebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// AddPayment registers a captured payment so FetchPayment can resolve it.
func (g *Gateway) AddPayment(p *provider.Payment) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[p.ID] = p
}

func (g *Gateway) FetchPayment(ctx context.Context, paymentID string) (*provider.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("fetch payment %s: not found", paymentID)
	}
	cp := *p
	return &cp, nil
}

func (g *Gateway) FetchOrder(ctx context.Context, orderID string) (*provider.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("fetch order %s: not found", orderID)
	}
	cp := *o
	return &cp, nil
}

func (g *Gateway) Refund(ctx context.Context, paymentID string, amount int64, reason string) (*provider.Refund, error) {
	if g.RefundErr != nil {
		return nil, g.RefundErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	rf := provider.Refund{
		ID:        fmt.Sprintf("rfnd_fk%03d", g.seq),
		PaymentID: paymentID,
		Amount:    amount,
		Status:    "processed",
	}
	g.refunds = append(g.refunds, rf)
	cp := rf
	return &cp, nil
}

// Refunds returns a copy of every refund issued so far.
func (g *Gateway) Refunds() []provider.Refund {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]provider.Refund(nil), g.refunds...)
}
