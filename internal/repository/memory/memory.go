// Package memory holds in-memory repository implementations with the
// same optimistic-concurrency contract as the postgres ones. Used by
// usecase tests and local development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
)

type TransactionRepo struct {
	mu    sync.Mutex
	items map[string]*domain.Transaction
}

func NewTransactionRepo() *TransactionRepo {
	return &TransactionRepo{items: make(map[string]*domain.Transaction)}
}

func (r *TransactionRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[tx.ID]; ok {
		return &pgconn.PgError{Code: "23505"}
	}
	tx.Version = 1
	r.items[tx.ID] = copyTx(tx)
	return nil
}

func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.items[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return copyTx(tx), nil
}

func (r *TransactionRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.items {
		if tx.Gateway.OrderID == orderID {
			return copyTx(tx), nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (r *TransactionRepo) UpdateIfVersion(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[tx.ID]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if stored.Version != tx.Version {
		return domain.ErrVersionConflict
	}
	next := copyTx(tx)
	next.Version++
	r.items[tx.ID] = next
	tx.Version++
	return nil
}

func (r *TransactionRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Transaction
	for _, tx := range r.items {
		if tx.BuyerID == userID || tx.SellerID == userID {
			out = append(out, copyTx(tx))
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *TransactionRepo) ListStuck(ctx context.Context, olderThan time.Time) ([]*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Transaction
	for _, tx := range r.items {
		if tx.Status == domain.TxProcessing && tx.InitiatedAt.Before(olderThan) {
			out = append(out, copyTx(tx))
		}
	}
	return out, nil
}

type WalletRepo struct {
	mu    sync.Mutex
	items map[string]*domain.Wallet // keyed by user id
}

func NewWalletRepo() *WalletRepo {
	return &WalletRepo{items: make(map[string]*domain.Wallet)}
}

func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[w.UserID]; ok {
		return &pgconn.PgError{Code: "23505"}
	}
	w.Version = 1
	r.items[w.UserID] = copyWallet(w)
	return nil
}

func (r *WalletRepo) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.items[userID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return copyWallet(w), nil
}

func (r *WalletRepo) UpdateIfVersion(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[w.UserID]
	if !ok {
		return domain.ErrWalletNotFound
	}
	if stored.Version != w.Version {
		return domain.ErrVersionConflict
	}
	next := copyWallet(w)
	next.Version++
	r.items[w.UserID] = next
	w.Version++
	return nil
}

type ListingRepo struct {
	mu    sync.Mutex
	items map[string]*domain.Listing
}

func NewListingRepo() *ListingRepo {
	return &ListingRepo{items: make(map[string]*domain.Listing)}
}

func (r *ListingRepo) Put(l *domain.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.items[l.ID] = &cp
}

func (r *ListingRepo) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.items[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *ListingRepo) MarkSold(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.items[id]
	if !ok {
		return domain.ErrListingNotFound
	}
	l.Status = domain.ListingSold
	l.UpdatedAt = time.Now()
	return nil
}

func (r *ListingRepo) SetBoost(ctx context.Context, id string, boostValue int, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.items[id]
	if !ok {
		return domain.ErrListingNotFound
	}
	l.BoostValue = boostValue
	l.BoostedUntil = &until
	l.UpdatedAt = time.Now()
	return nil
}

type WebhookEventRepo struct {
	mu    sync.Mutex
	items map[string]*domain.WebhookEvent // keyed by event id
}

func NewWebhookEventRepo() *WebhookEventRepo {
	return &WebhookEventRepo{items: make(map[string]*domain.WebhookEvent)}
}

func (r *WebhookEventRepo) Insert(ctx context.Context, ev *domain.WebhookEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[ev.EventID]; ok {
		return false, nil
	}
	cp := *ev
	r.items[ev.EventID] = &cp
	return true, nil
}

func (r *WebhookEventRepo) Delete(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, eventID)
	return nil
}

func copyTx(t *domain.Transaction) *domain.Transaction {
	cp := *t
	return &cp
}

func copyWallet(w *domain.Wallet) *domain.Wallet {
	cp := *w
	cp.RecentEntries = append([]domain.LedgerEntry(nil), w.RecentEntries...)
	return &cp
}
