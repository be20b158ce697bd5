package wallet

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
	"github.com/ankit6686510/buy-sell-sub001/internal/repository"
	"github.com/ankit6686510/buy-sell-sub001/pkg/id"
)

// Default wallet configuration, amounts in paise.
const (
	DefaultMinWithdrawal = 10000     // ₹100
	DefaultDailyLimit    = 5000000   // ₹50,000
	DefaultMonthlyLimit  = 20000000  // ₹2,00,000
	DefaultMaxBalance    = 100000000 // ₹10,00,000
)

const maxRetries = 3

// Service owns the wallet invariants. All mutations go through the
// primitives below; each one is a single optimistic read-modify-write
// against the store, retried on version conflict.
type Service struct {
	repo     repository.WalletRepository
	notifier *Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func New(repo repository.WalletRepository, notifier *Notifier, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the wall clock, used by rolling-window tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetOrCreate returns the user's wallet, creating it lazily on first
// need. The unique constraint on user_id makes creation idempotent: a
// concurrent creator losing the race rereads the winner's row.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*domain.Wallet, error) {
	w, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, domain.ErrWalletNotFound) {
		return nil, err
	}

	now := s.now()
	fresh := &domain.Wallet{
		ID:            id.Generate("wlt"),
		UserID:        userID,
		MinWithdrawal: DefaultMinWithdrawal,
		Limits: domain.WalletLimits{
			DailyWithdrawalLimit:   DefaultDailyLimit,
			MonthlyWithdrawalLimit: DefaultMonthlyLimit,
			MaxBalance:             DefaultMaxBalance,
		},
		DailyWithdrawn:   domain.DailyWindow{WindowStart: now},
		MonthlyWithdrawn: domain.MonthlyWindow{WindowMonth: now.Month(), WindowYear: now.Year()},
		KYCStatus:        domain.KYCPending,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, fresh); err != nil {
		if domain.IsUniqueViolation(err) {
			return s.repo.GetByUserID(ctx, userID)
		}
		return nil, err
	}
	return fresh, nil
}

// mutate runs fn against a fresh read of the wallet and writes it back
// conditionally. fn sees the current state on every retry, so business
// checks are always evaluated against the version that will be written.
func (s *Service) mutate(ctx context.Context, userID string, fn func(w *domain.Wallet) error) (*domain.Wallet, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		w, err := s.GetOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := fn(w); err != nil {
			return nil, err
		}
		if err := w.CheckInvariants(); err != nil {
			return nil, err
		}

		err = s.repo.UpdateIfVersion(ctx, w)
		if err == nil {
			s.notifier.NotifyBalance(w)
			return w, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
		s.logger.Debug("wallet version conflict, retrying",
			zap.String("user_id", userID),
			zap.Int("attempt", attempt+1))
	}
	return nil, domain.ErrContention
}

func (s *Service) Credit(ctx context.Context, userID string, amount int64, description, refTx string) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, domain.Invalid("amount", "must be positive")
	}
	return s.mutate(ctx, userID, func(w *domain.Wallet) error {
		w.Balance += amount
		w.TotalEarnings += amount
		w.PushEntry(domain.LedgerEntry{
			Type:           domain.EntryCredit,
			Description:    description,
			Amount:         amount,
			BalanceAfter:   w.Balance,
			RefTransaction: refTx,
			At:             s.now(),
		})
		return nil
	})
}

func (s *Service) Debit(ctx context.Context, userID string, amount int64, description, refTx string) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, domain.Invalid("amount", "must be positive")
	}
	return s.mutate(ctx, userID, func(w *domain.Wallet) error {
		if w.AvailableBalance() < amount {
			return domain.ErrInsufficientBalance
		}
		w.Balance -= amount
		w.PushEntry(domain.LedgerEntry{
			Type:           domain.EntryDebit,
			Description:    description,
			Amount:         amount,
			BalanceAfter:   w.Balance,
			RefTransaction: refTx,
			At:             s.now(),
		})
		return nil
	})
}

// BlockAmount reserves funds against a pending obligation without moving
// the balance; blocked funds cannot be withdrawn or double-spent.
func (s *Service) BlockAmount(ctx context.Context, userID string, amount int64, description, refTx string) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, domain.Invalid("amount", "must be positive")
	}
	return s.mutate(ctx, userID, func(w *domain.Wallet) error {
		if w.AvailableBalance() < amount {
			return domain.ErrInsufficientBalance
		}
		w.BlockedAmount += amount
		w.PushEntry(domain.LedgerEntry{
			Type:           domain.EntryBlocked,
			Description:    description,
			Amount:         amount,
			BalanceAfter:   w.Balance,
			RefTransaction: refTx,
			At:             s.now(),
		})
		return nil
	})
}

// ConsumeBlocked releases a hold and debits the same amount in one
// conditional write. Reserved funds are never observable as spendable in
// between, so a concurrent debit cannot slip into the gap.
func (s *Service) ConsumeBlocked(ctx context.Context, userID string, amount int64, description, refTx string) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, domain.Invalid("amount", "must be positive")
	}
	return s.mutate(ctx, userID, func(w *domain.Wallet) error {
		if w.BlockedAmount < amount {
			return domain.Invalid("amount", "exceeds blocked amount")
		}
		w.BlockedAmount -= amount
		w.Balance -= amount
		w.PushEntry(domain.LedgerEntry{
			Type:           domain.EntryUnblocked,
			Description:    description,
			Amount:         amount,
			BalanceAfter:   w.Balance + amount,
			RefTransaction: refTx,
			At:             s.now(),
		})
		w.PushEntry(domain.LedgerEntry{
			Type:           domain.EntryDebit,
			Description:    description,
			Amount:         amount,
			BalanceAfter:   w.Balance,
			RefTransaction: refTx,
			At:             s.now(),
		})
		return nil
	})
}

func (s *Service) UnblockAmount(ctx context.Context, userID string, amount int64, description, refTx string) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, domain.Invalid("amount", "must be positive")
	}
	return s.mutate(ctx, userID, func(w *domain.Wallet) error {
		if w.BlockedAmount < amount {
			return domain.Invalid("amount", "exceeds blocked amount")
		}
		w.BlockedAmount -= amount
		w.PushEntry(domain.LedgerEntry{
			Type:           domain.EntryUnblocked,
			Description:    description,
			Amount:         amount,
			BalanceAfter:   w.Balance,
			RefTransaction: refTx,
			At:             s.now(),
		})
		return nil
	})
}

// CanWithdraw evaluates every refusal reason without mutating state and
// returns all that apply, so callers get the complete diagnostic rather
// than the first failure.
func (s *Service) CanWithdraw(ctx context.Context, userID string, amount int64) (*domain.Wallet, *domain.WithdrawalRefusedError, error) {
	w, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	w.ResetWindows(s.now())
	if refusal := evaluateWithdrawal(w, amount); refusal != nil {
		return w, refusal, nil
	}
	return w, nil, nil
}

// ApplyWithdrawal debits the wallet and advances the rolling counters in
// one atomic write. The refusal checks rerun inside the retry loop so a
// concurrent withdrawal cannot slip both past the limits.
func (s *Service) ApplyWithdrawal(ctx context.Context, userID string, amount int64, refTx string) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, domain.Invalid("amount", "must be positive")
	}
	return s.mutate(ctx, userID, func(w *domain.Wallet) error {
		w.ResetWindows(s.now())
		if refusal := evaluateWithdrawal(w, amount); refusal != nil {
			return refusal
		}
		w.Balance -= amount
		w.TotalWithdrawals += amount
		w.DailyWithdrawn.Amount += amount
		w.MonthlyWithdrawn.Amount += amount
		w.PushEntry(domain.LedgerEntry{
			Type:           domain.EntryWithdrawal,
			Description:    "wallet withdrawal",
			Amount:         amount,
			BalanceAfter:   w.Balance,
			RefTransaction: refTx,
			At:             s.now(),
		})
		return nil
	})
}

func evaluateWithdrawal(w *domain.Wallet, amount int64) *domain.WithdrawalRefusedError {
	var reasons []string
	if amount < w.MinWithdrawal {
		reasons = append(reasons, domain.RefuseBelowMinimum)
	}
	if w.AvailableBalance() < amount {
		reasons = append(reasons, domain.RefuseInsufficientBalance)
	}
	if w.DailyWithdrawn.Amount+amount > w.Limits.DailyWithdrawalLimit {
		reasons = append(reasons, domain.RefuseDailyLimitExceeded)
	}
	if w.MonthlyWithdrawn.Amount+amount > w.Limits.MonthlyWithdrawalLimit {
		reasons = append(reasons, domain.RefuseMonthlyLimit)
	}
	if !w.Active {
		reasons = append(reasons, domain.RefuseWalletInactive)
	}
	if w.KYCStatus != domain.KYCVerified {
		reasons = append(reasons, domain.RefuseKYCNotVerified)
	}
	if len(reasons) == 0 {
		return nil
	}
	return &domain.WithdrawalRefusedError{
		Reasons:          reasons,
		DailyRemaining:   headroom(w.Limits.DailyWithdrawalLimit, w.DailyWithdrawn.Amount),
		MonthlyRemaining: headroom(w.Limits.MonthlyWithdrawalLimit, w.MonthlyWithdrawn.Amount),
	}
}

func headroom(limit, used int64) int64 {
	if used >= limit {
		return 0
	}
	return limit - used
}
