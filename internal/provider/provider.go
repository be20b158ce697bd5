package provider

import "context"

// Gateway is the narrow surface of the external payment gateway this
// service consumes. One implementation per gateway; constructed explicitly
// and injected so tests can substitute a fake. The client never retries;
// retry policy belongs to callers.
type Gateway interface {
	// CreateOrder registers a payment order with the gateway.
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error)

	// VerifyPaymentSignature checks the keyed hash over orderID|paymentID.
	VerifyPaymentSignature(orderID, paymentID, signature string) bool

	// VerifyWebhookSignature checks the keyed hash over the raw, unparsed
	// request body. Verifying against bytes (not a re-serialized object)
	// is what stops forged payloads with reordered fields.
	VerifyWebhookSignature(body []byte, signature string) bool

	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)

	// Refund issues a (full or partial) refund against a captured payment.
	Refund(ctx context.Context, paymentID string, amount int64, reason string) (*Refund, error)
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Method   string `json:"method"`
}

type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}
