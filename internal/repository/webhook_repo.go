package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
)

// WebhookEventRepository durably records delivered gateway events.
// Insert returns false when the event id was already recorded, which is
// the dedup signal for literal webhook redelivery.
type WebhookEventRepository interface {
	Insert(ctx context.Context, ev *domain.WebhookEvent) (bool, error)
	// Delete releases an event id so a redelivery can be processed; used
	// when dispatch fails for a reason redelivery can fix.
	Delete(ctx context.Context, eventID string) error
}

type PGWebhookEventRepository struct {
	db *pgxpool.Pool
}

func NewWebhookEventRepository(db *pgxpool.Pool) *PGWebhookEventRepository {
	return &PGWebhookEventRepository{db: db}
}

func (r *PGWebhookEventRepository) Insert(ctx context.Context, ev *domain.WebhookEvent) (bool, error) {
	query := `INSERT INTO webhook_events (id, event_id, type, order_id, payment_id, received_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (event_id) DO NOTHING`
	tag, err := r.db.Exec(ctx, query,
		ev.ID, ev.EventID, ev.Type, ev.OrderID, ev.PaymentID, ev.ReceivedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PGWebhookEventRepository) Delete(ctx context.Context, eventID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM webhook_events WHERE event_id = $1`, eventID)
	return err
}
