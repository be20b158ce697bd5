package transaction

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
	"github.com/ankit6686510/buy-sell-sub001/internal/provider"
	"github.com/ankit6686510/buy-sell-sub001/internal/repository"
	walletuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/wallet"
	"github.com/ankit6686510/buy-sell-sub001/pkg/id"
)

const maxRetries = 3

// Service owns transaction records and their state machine. Records are
// created here and advanced here or by the settlement processor; nothing
// else writes them.
type Service struct {
	repo    repository.TransactionRepository
	gateway provider.Gateway
	wallets *walletuc.Service
	logger  *zap.Logger
}

func New(repo repository.TransactionRepository, gateway provider.Gateway, wallets *walletuc.Service, logger *zap.Logger) *Service {
	return &Service{repo: repo, gateway: gateway, wallets: wallets, logger: logger}
}

type IntentParams struct {
	Kind        domain.TxKind
	BuyerID     string
	SellerID    string
	ListingID   *string
	Amount      int64
	PlatformFee int64
	Data        domain.KindData
}

type Intent struct {
	Transaction *domain.Transaction
	Order       *provider.Order
}

// CreateIntent creates a pending transaction and registers a gateway
// order for it. Escrow intents additionally block the buyer's wallet
// funds up front so they cannot be withdrawn while the escrow is open.
func (s *Service) CreateIntent(ctx context.Context, p IntentParams) (*Intent, error) {
	if p.BuyerID == "" || p.SellerID == "" {
		return nil, domain.Invalid("parties", "buyer and seller are required")
	}
	if p.Kind == domain.KindWithdrawal {
		return nil, domain.Invalid("kind", "withdrawals are not payment intents")
	}
	if err := p.Data.Validate(p.Kind); err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:          id.Generate("txn"),
		BuyerID:     p.BuyerID,
		SellerID:    p.SellerID,
		ListingID:   p.ListingID,
		Kind:        p.Kind,
		Currency:    domain.SupportedCurrency,
		Status:      domain.TxPending,
		Data:        p.Data,
		InitiatedAt: time.Now(),
	}
	if err := tx.SetAmounts(p.Amount, p.PlatformFee); err != nil {
		return nil, err
	}
	tx.Gateway.Receipt = id.Receipt("rcpt")

	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, err
	}

	if p.Kind == domain.KindEscrow {
		if _, err := s.wallets.BlockAmount(ctx, p.BuyerID, tx.Amount, "escrow hold", tx.ID); err != nil {
			reason := "escrow hold failed: " + err.Error()
			if failErr := s.Fail(ctx, tx.ID, reason); failErr != nil {
				s.logger.Error("could not fail escrow transaction after hold failure",
					zap.String("transaction_id", tx.ID),
					zap.Error(failErr))
			}
			return nil, err
		}
	}

	order, err := s.gateway.CreateOrder(ctx, tx.Amount, tx.Currency, tx.Gateway.Receipt, map[string]string{
		"transaction_id": tx.ID,
		"kind":           string(tx.Kind),
	})
	if err != nil {
		s.logger.Error("gateway order creation failed",
			zap.String("transaction_id", tx.ID),
			zap.Error(err))
		if failErr := s.Fail(ctx, tx.ID, "gateway order creation failed"); failErr != nil {
			s.logger.Error("could not fail transaction after order failure",
				zap.String("transaction_id", tx.ID),
				zap.Error(failErr))
		}
		if p.Kind == domain.KindEscrow {
			if _, unblockErr := s.wallets.UnblockAmount(ctx, p.BuyerID, tx.Amount, "escrow hold released", tx.ID); unblockErr != nil {
				s.logger.Error("could not release escrow hold after order failure",
					zap.String("transaction_id", tx.ID),
					zap.Error(unblockErr))
			}
		}
		return nil, err
	}

	tx.Gateway.OrderID = order.ID
	if err := s.updateWithRetry(ctx, tx.ID, func(t *domain.Transaction) error {
		if t.Gateway.OrderID != "" && t.Gateway.OrderID != order.ID {
			return domain.Invalid("order_id", "transaction already has a gateway order")
		}
		t.Gateway.OrderID = order.ID
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.Info("payment intent created",
		zap.String("transaction_id", tx.ID),
		zap.String("order_id", order.ID),
		zap.String("kind", string(tx.Kind)),
		zap.Int64("amount", tx.Amount))

	return &Intent{Transaction: tx, Order: order}, nil
}

func (s *Service) Get(ctx context.Context, txID string) (*domain.Transaction, error) {
	return s.repo.GetByID(ctx, txID)
}

func (s *Service) GetByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

// ListStuck surfaces processing transactions whose settlement effect
// never finished; they are reported for reconciliation, not auto-retried.
func (s *Service) ListStuck(ctx context.Context, olderThan time.Duration) ([]*domain.Transaction, error) {
	return s.repo.ListStuck(ctx, time.Now().Add(-olderThan))
}

// Fail marks a pending/processing transaction failed. Failing an already
// failed transaction is a no-op; any other terminal state is a conflict.
func (s *Service) Fail(ctx context.Context, txID, reason string) error {
	return s.updateWithRetry(ctx, txID, func(t *domain.Transaction) error {
		if t.Status == domain.TxFailed {
			return nil
		}
		if !t.Status.CanTransition(domain.TxFailed) {
			return domain.ErrInvalidStateTransition
		}
		now := time.Now()
		t.Status = domain.TxFailed
		t.FailedAt = &now
		t.FailReason = &reason
		return nil
	})
}

// FailByOrderID is the webhook-side entry: gateways report failures by
// order id before the payment id exists.
func (s *Service) FailByOrderID(ctx context.Context, orderID, reason string) error {
	tx, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	return s.Fail(ctx, tx.ID, reason)
}

// RecordWithdrawal writes the audit transaction for a completed wallet
// withdrawal. The debit has already been applied; this record is the
// durable trail.
func (s *Service) RecordWithdrawal(ctx context.Context, txID, userID string, amount int64, method, details string) (*domain.Transaction, error) {
	now := time.Now()
	tx := &domain.Transaction{
		ID:          txID,
		BuyerID:     userID,
		SellerID:    userID,
		Kind:        domain.KindWithdrawal,
		Currency:    domain.SupportedCurrency,
		Status:      domain.TxCompleted,
		Data:        domain.KindData{Withdrawal: &domain.WithdrawalData{Method: method, Details: details}},
		InitiatedAt: now,
		CompletedAt: &now,
	}
	if err := tx.SetAmounts(amount, 0); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Service) updateWithRetry(ctx context.Context, txID string, fn func(t *domain.Transaction) error) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		tx, err := s.repo.GetByID(ctx, txID)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			return err
		}
		err = s.repo.UpdateIfVersion(ctx, tx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
	}
	return domain.ErrContention
}
