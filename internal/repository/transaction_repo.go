package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
)

// TransactionRepository is the durable store for transaction records.
// Every mutation is a conditional write on the record version.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error)
	UpdateIfVersion(ctx context.Context, tx *domain.Transaction) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error)
	ListStuck(ctx context.Context, olderThan time.Time) ([]*domain.Transaction, error)
}

type PGTransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *PGTransactionRepository {
	return &PGTransactionRepository{db: db}
}

const txColumns = `id, buyer_id, seller_id, listing_id, kind, amount, platform_fee,
	seller_amount, currency, status, gateway, data, fail_reason, review_flag,
	initiated_at, completed_at, failed_at, refunded_at, version`

func (r *PGTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	gateway, err := json.Marshal(tx.Gateway)
	if err != nil {
		return err
	}
	data, err := json.Marshal(tx.Data)
	if err != nil {
		return err
	}

	query := `INSERT INTO transactions
		(id, buyer_id, seller_id, listing_id, kind, amount, platform_fee,
		 seller_amount, currency, status, gateway, data, initiated_at, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,1)`
	_, err = r.db.Exec(ctx, query,
		tx.ID, tx.BuyerID, tx.SellerID, tx.ListingID, tx.Kind,
		tx.Amount, tx.PlatformFee, tx.SellerAmount, tx.Currency, tx.Status,
		gateway, data, tx.InitiatedAt)
	if err != nil {
		return err
	}
	tx.Version = 1
	return nil
}

func (r *PGTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return r.getOne(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = $1`, id)
}

func (r *PGTransactionRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	return r.getOne(ctx, `SELECT `+txColumns+` FROM transactions WHERE gateway->>'order_id' = $1`, orderID)
}

func (r *PGTransactionRepository) getOne(ctx context.Context, query string, arg any) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, query, arg)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	return tx, err
}

// UpdateIfVersion writes the record only if its stored version matches
// tx.Version. On success the in-memory version is bumped; zero rows
// affected means another writer got there first.
func (r *PGTransactionRepository) UpdateIfVersion(ctx context.Context, tx *domain.Transaction) error {
	gateway, err := json.Marshal(tx.Gateway)
	if err != nil {
		return err
	}
	data, err := json.Marshal(tx.Data)
	if err != nil {
		return err
	}

	query := `UPDATE transactions SET
		amount = $1, platform_fee = $2, seller_amount = $3, status = $4,
		gateway = $5, data = $6, fail_reason = $7, review_flag = $8,
		completed_at = $9, failed_at = $10, refunded_at = $11,
		version = version + 1
		WHERE id = $12 AND version = $13`
	tag, err := r.db.Exec(ctx, query,
		tx.Amount, tx.PlatformFee, tx.SellerAmount, tx.Status,
		gateway, data, tx.FailReason, tx.ReviewFlag,
		tx.CompletedAt, tx.FailedAt, tx.RefundedAt,
		tx.ID, tx.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	tx.Version++
	return nil
}

func (r *PGTransactionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY initiated_at DESC LIMIT $2`
	return r.list(ctx, query, userID, limit)
}

// ListStuck returns processing transactions older than the cutoff. These
// had their settlement effect fail mid-flight and are awaiting
// reconciliation.
func (r *PGTransactionRepository) ListStuck(ctx context.Context, olderThan time.Time) ([]*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions
		WHERE status = $1 AND initiated_at < $2
		ORDER BY initiated_at ASC`
	return r.list(ctx, query, domain.TxProcessing, olderThan)
}

func (r *PGTransactionRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	var gateway, data []byte
	err := row.Scan(&tx.ID, &tx.BuyerID, &tx.SellerID, &tx.ListingID, &tx.Kind,
		&tx.Amount, &tx.PlatformFee, &tx.SellerAmount, &tx.Currency, &tx.Status,
		&gateway, &data, &tx.FailReason, &tx.ReviewFlag,
		&tx.InitiatedAt, &tx.CompletedAt, &tx.FailedAt, &tx.RefundedAt, &tx.Version)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(gateway, &tx.Gateway); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &tx.Data); err != nil {
		return nil, err
	}
	return &tx, nil
}
