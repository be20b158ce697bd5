package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
)

// ListingRepository exposes just the listing mutations settlement needs.
type ListingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	MarkSold(ctx context.Context, id string) error
	SetBoost(ctx context.Context, id string, boostValue int, until time.Time) error
}

type PGListingRepository struct {
	db *pgxpool.Pool
}

func NewListingRepository(db *pgxpool.Pool) *PGListingRepository {
	return &PGListingRepository{db: db}
}

func (r *PGListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	query := `SELECT id, seller_id, status, boost_value, boosted_until, views, quotes_count, updated_at
		FROM listings WHERE id = $1`
	var l domain.Listing
	err := r.db.QueryRow(ctx, query, id).Scan(
		&l.ID, &l.SellerID, &l.Status, &l.BoostValue, &l.BoostedUntil,
		&l.Views, &l.QuotesCount, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PGListingRepository) MarkSold(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE listings SET status = $1, updated_at = NOW() WHERE id = $2`,
		domain.ListingSold, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (r *PGListingRepository) SetBoost(ctx context.Context, id string, boostValue int, until time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE listings SET boost_value = $1, boosted_until = $2, updated_at = NOW() WHERE id = $3`,
		boostValue, until, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}
