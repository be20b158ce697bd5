package domain

import "time"

// Webhook event types recognized by ingestion. Anything else is
// acknowledged and ignored so the gateway stops redelivering it.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventRefundCreated   = "refund.created"
)

// WebhookEvent is the dedup record for one delivered gateway event.
// EventID is unique; redelivery of the same event is a no-op before it
// ever reaches the transaction state machine.
type WebhookEvent struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	OrderID    string    `json:"order_id,omitempty"`
	PaymentID  string    `json:"payment_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}
