package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
)

// WalletRepository persists wallet records. user_id carries a unique
// constraint; create-if-absent is resolved by the wallet usecase on
// unique violation.
type WalletRepository interface {
	Create(ctx context.Context, w *domain.Wallet) error
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)
	UpdateIfVersion(ctx context.Context, w *domain.Wallet) error
}

type PGWalletRepository struct {
	db *pgxpool.Pool
}

func NewWalletRepository(db *pgxpool.Pool) *PGWalletRepository {
	return &PGWalletRepository{db: db}
}

func (r *PGWalletRepository) Create(ctx context.Context, w *domain.Wallet) error {
	entries, err := json.Marshal(w.RecentEntries)
	if err != nil {
		return err
	}
	limits, err := json.Marshal(w.Limits)
	if err != nil {
		return err
	}
	daily, err := json.Marshal(w.DailyWithdrawn)
	if err != nil {
		return err
	}
	monthly, err := json.Marshal(w.MonthlyWithdrawn)
	if err != nil {
		return err
	}

	query := `INSERT INTO wallets
		(id, user_id, balance, pending_amount, blocked_amount, total_earnings,
		 total_withdrawals, recent_entries, min_withdrawal, limits,
		 daily_withdrawn, monthly_withdrawn, kyc_status, active,
		 created_at, updated_at, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,NOW(),NOW(),1)`
	_, err = r.db.Exec(ctx, query,
		w.ID, w.UserID, w.Balance, w.PendingAmount, w.BlockedAmount,
		w.TotalEarnings, w.TotalWithdrawals, entries, w.MinWithdrawal,
		limits, daily, monthly, w.KYCStatus, w.Active)
	if err != nil {
		return err
	}
	w.Version = 1
	return nil
}

func (r *PGWalletRepository) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	query := `SELECT id, user_id, balance, pending_amount, blocked_amount,
		total_earnings, total_withdrawals, recent_entries, min_withdrawal,
		limits, daily_withdrawn, monthly_withdrawn, kyc_status, active,
		created_at, updated_at, version
		FROM wallets WHERE user_id = $1`

	var w domain.Wallet
	var entries, limits, daily, monthly []byte
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&w.ID, &w.UserID, &w.Balance, &w.PendingAmount, &w.BlockedAmount,
		&w.TotalEarnings, &w.TotalWithdrawals, &entries, &w.MinWithdrawal,
		&limits, &daily, &monthly, &w.KYCStatus, &w.Active,
		&w.CreatedAt, &w.UpdatedAt, &w.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(entries, &w.RecentEntries); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(limits, &w.Limits); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(daily, &w.DailyWithdrawn); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(monthly, &w.MonthlyWithdrawn); err != nil {
		return nil, err
	}
	return &w, nil
}

// UpdateIfVersion is the single write path for wallet rows. Zero rows
// affected means the read was stale; the caller rereads and retries.
func (r *PGWalletRepository) UpdateIfVersion(ctx context.Context, w *domain.Wallet) error {
	entries, err := json.Marshal(w.RecentEntries)
	if err != nil {
		return err
	}
	daily, err := json.Marshal(w.DailyWithdrawn)
	if err != nil {
		return err
	}
	monthly, err := json.Marshal(w.MonthlyWithdrawn)
	if err != nil {
		return err
	}

	query := `UPDATE wallets SET
		balance = $1, pending_amount = $2, blocked_amount = $3,
		total_earnings = $4, total_withdrawals = $5, recent_entries = $6,
		daily_withdrawn = $7, monthly_withdrawn = $8, kyc_status = $9,
		active = $10, updated_at = NOW(), version = version + 1
		WHERE id = $11 AND version = $12`
	tag, err := r.db.Exec(ctx, query,
		w.Balance, w.PendingAmount, w.BlockedAmount,
		w.TotalEarnings, w.TotalWithdrawals, entries,
		daily, monthly, w.KYCStatus, w.Active,
		w.ID, w.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	w.Version++
	return nil
}
