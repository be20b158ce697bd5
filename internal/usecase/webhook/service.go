package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
	"github.com/ankit6686510/buy-sell-sub001/internal/metrics"
	"github.com/ankit6686510/buy-sell-sub001/internal/provider"
	"github.com/ankit6686510/buy-sell-sub001/internal/repository"
	settlementuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/settlement"
	transactionuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/transaction"
)

// Service ingests gateway-pushed events. The signature is verified over
// the raw body before any JSON is parsed, then the event is deduplicated
// by its id before it can reach the transaction state machine.
type Service struct {
	gateway      provider.Gateway
	events       repository.WebhookEventRepository
	settlements  *settlementuc.Service
	transactions *transactionuc.Service
	logger       *zap.Logger
}

func New(gateway provider.Gateway, events repository.WebhookEventRepository, settlements *settlementuc.Service, transactions *transactionuc.Service, logger *zap.Logger) *Service {
	return &Service{
		gateway:      gateway,
		events:       events,
		settlements:  settlements,
		transactions: transactions,
		logger:       logger,
	}
}

type envelope struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
				Amount    int64  `json:"amount"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

// Ingest processes one webhook delivery. The returned error is for
// logging and metrics; the HTTP handler acknowledges regardless so the
// gateway does not build a retry storm.
func (s *Service) Ingest(ctx context.Context, rawBody []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(rawBody, signature) {
		metrics.SignatureFailuresTotal.Inc()
		s.logger.Warn("webhook signature rejected",
			zap.Int("body_size", len(rawBody)),
			zap.Bool("security_event", true))
		return domain.ErrSignatureMismatch
	}

	var ev envelope
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return domain.Invalid("body", "malformed webhook payload")
	}

	record := &domain.WebhookEvent{
		ID:         "evt_" + uuid.NewString(),
		EventID:    ev.ID,
		Type:       ev.Event,
		OrderID:    ev.Payload.Payment.Entity.OrderID,
		PaymentID:  ev.Payload.Payment.Entity.ID,
		ReceivedAt: time.Now(),
	}
	if record.EventID == "" {
		// Gateways without event ids still redeliver; order+type is the
		// next best idempotency key.
		record.EventID = record.OrderID + ":" + ev.Event
	}

	fresh, err := s.events.Insert(ctx, record)
	if err != nil {
		return err
	}
	if !fresh {
		metrics.WebhookEventsTotal.WithLabelValues(ev.Event, "duplicate").Inc()
		s.logger.Info("duplicate webhook event ignored",
			zap.String("event_id", record.EventID),
			zap.String("type", ev.Event))
		return nil
	}

	if err := s.dispatch(ctx, &ev); err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(ev.Event, "error").Inc()
		if Retryable(err) {
			// Release the event id so redelivery is not swallowed by the
			// dedup check; the state machine stays idempotent either way.
			if delErr := s.events.Delete(ctx, record.EventID); delErr != nil {
				s.logger.Error("could not release dedup record for retry",
					zap.String("event_id", record.EventID),
					zap.Error(delErr))
			}
		}
		return err
	}
	metrics.WebhookEventsTotal.WithLabelValues(ev.Event, "ok").Inc()
	return nil
}

// Retryable reports whether gateway redelivery could change the outcome.
// Business rejections are final; contention and infrastructure failures
// are not.
func Retryable(err error) bool {
	var validation *domain.ValidationError
	switch {
	case err == nil:
		return false
	case errors.As(err, &validation):
		return false
	case errors.Is(err, domain.ErrSignatureMismatch),
		errors.Is(err, domain.ErrInvalidStateTransition),
		errors.Is(err, domain.ErrPaymentIDMismatch),
		errors.Is(err, domain.ErrTransactionNotFound):
		return false
	}
	return true
}

func (s *Service) dispatch(ctx context.Context, ev *envelope) error {
	switch ev.Event {
	case domain.EventPaymentCaptured:
		payment := ev.Payload.Payment.Entity
		if payment.OrderID == "" || payment.ID == "" {
			return domain.Invalid("payload", "payment.captured without order or payment id")
		}
		_, err := s.settlements.SettleByOrder(ctx, payment.OrderID, payment.ID)
		// A transaction already settled under this payment id reports
		// success; the dedup layer let a same-event retry with a fresh
		// event id through, which is exactly what the state machine
		// idempotency exists for.
		return err

	case domain.EventPaymentFailed:
		payment := ev.Payload.Payment.Entity
		if payment.OrderID == "" {
			return domain.Invalid("payload", "payment.failed without order id")
		}
		reason := payment.ErrorDescription
		if reason == "" {
			reason = "payment failed at gateway"
		}
		err := s.transactions.FailByOrderID(ctx, payment.OrderID, reason)
		if errors.Is(err, domain.ErrInvalidStateTransition) {
			// Late failure event for a transaction that already settled;
			// terminal states are one-way.
			s.logger.Info("ignoring failure event for settled transaction",
				zap.String("order_id", payment.OrderID))
			return nil
		}
		return err

	case domain.EventRefundCreated:
		refund := ev.Payload.Refund.Entity
		if refund.PaymentID == "" {
			return domain.Invalid("payload", "refund.created without payment id")
		}
		return s.settlements.MarkRefundedFromGateway(ctx, refund.PaymentID, refund.Amount)
	}

	// Unrecognized event types are acknowledged and dropped so the
	// gateway is not induced to redeliver them.
	s.logger.Debug("unrecognized webhook event type", zap.String("type", ev.Event))
	return nil
}
