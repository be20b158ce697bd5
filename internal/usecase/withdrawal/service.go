package withdrawal

import (
	"context"

	"go.uber.org/zap"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
	transactionuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/transaction"
	walletuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/wallet"
	"github.com/ankit6686510/buy-sell-sub001/pkg/id"
)

// Service validates and executes wallet-to-payout withdrawals against the
// rolling limits and KYC gate. No partial withdrawal is ever substituted:
// a refused request comes back with every applicable reason.
type Service struct {
	wallets      *walletuc.Service
	transactions *transactionuc.Service
	logger       *zap.Logger
}

func New(wallets *walletuc.Service, transactions *transactionuc.Service, logger *zap.Logger) *Service {
	return &Service{wallets: wallets, transactions: transactions, logger: logger}
}

type Result struct {
	TransactionID string `json:"transaction_id"`
	NewBalance    int64  `json:"new_balance"`
}

func (s *Service) Request(ctx context.Context, userID string, amount int64, method, details string) (*Result, error) {
	if amount <= 0 {
		return nil, domain.Invalid("amount", "must be positive")
	}
	if method == "" {
		return nil, domain.Invalid("method", "payout method is required")
	}

	// The audit record id is generated up front so the debit's ledger
	// entry and the transaction record share one reference.
	txID := id.Generate("txn")

	w, err := s.wallets.ApplyWithdrawal(ctx, userID, amount, txID)
	if err != nil {
		return nil, err
	}

	if _, err := s.transactions.RecordWithdrawal(ctx, txID, userID, amount, method, details); err != nil {
		// The money already moved; the wallet ledger entry referencing
		// txID is the recovery breadcrumb for reconciliation.
		s.logger.Error("withdrawal debit applied but audit record failed",
			zap.String("user_id", userID),
			zap.String("transaction_id", txID),
			zap.Int64("amount", amount),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("withdrawal executed",
		zap.String("user_id", userID),
		zap.String("transaction_id", txID),
		zap.Int64("amount", amount),
		zap.String("method", method))
	return &Result{TransactionID: txID, NewBalance: w.Balance}, nil
}

// Preview runs the refusal checks without moving anything, for the
// withdrawal form's live validation.
func (s *Service) Preview(ctx context.Context, userID string, amount int64) (*domain.WithdrawalRefusedError, error) {
	_, refusal, err := s.wallets.CanWithdraw(ctx, userID, amount)
	if err != nil {
		return nil, err
	}
	return refusal, nil
}
