package settlement

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
	"github.com/ankit6686510/buy-sell-sub001/internal/metrics"
	"github.com/ankit6686510/buy-sell-sub001/internal/provider"
	"github.com/ankit6686510/buy-sell-sub001/internal/repository"
	walletuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/wallet"
)

const maxRetries = 3

// Service applies a transaction's business effect exactly once. Both the
// synchronous confirmation endpoint and webhook ingestion funnel into
// Settle; the conditional pending->processing write is what serializes
// them.
type Service struct {
	txRepo   repository.TransactionRepository
	wallets  *walletuc.Service
	listings repository.ListingRepository
	gateway  provider.Gateway
	logger   *zap.Logger
}

func New(txRepo repository.TransactionRepository, wallets *walletuc.Service, listings repository.ListingRepository, gateway provider.Gateway, logger *zap.Logger) *Service {
	return &Service{txRepo: txRepo, wallets: wallets, listings: listings, gateway: gateway, logger: logger}
}

// Settle marks the transaction completed and applies its effect. Safe to
// call any number of times with the same arguments. The client-supplied
// payment signature is verified before any state changes.
func (s *Service) Settle(ctx context.Context, txID, paymentID, signature string) (*domain.Transaction, error) {
	tx, err := s.txRepo.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, tx, paymentID, signature, true)
}

// SettleByOrder is the webhook entry point: gateway events carry the
// order id, not our transaction id, and their authenticity was already
// established by the webhook signature over the raw body.
func (s *Service) SettleByOrder(ctx context.Context, orderID, paymentID string) (*domain.Transaction, error) {
	tx, err := s.txRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, tx, paymentID, "", false)
}

func (s *Service) settle(ctx context.Context, tx *domain.Transaction, paymentID, signature string, verifySignature bool) (*domain.Transaction, error) {
	for attempt := 0; ; attempt++ {
		switch tx.Status {
		case domain.TxCompleted:
			if tx.Gateway.PaymentID == paymentID {
				return tx, nil
			}
			// Same order settled under a different payment id is a
			// gateway-side anomaly: reject and flag for manual review.
			s.flagForReview(ctx, tx.ID, paymentID)
			return nil, domain.ErrPaymentIDMismatch
		case domain.TxFailed, domain.TxRefunded:
			return nil, domain.ErrInvalidStateTransition
		case domain.TxProcessing:
			// Another caller holds the settlement; tell this one to
			// re-poll rather than double-apply the effect.
			return nil, domain.ErrContention
		}

		if verifySignature && !s.gateway.VerifyPaymentSignature(tx.Gateway.OrderID, paymentID, signature) {
			metrics.SignatureFailuresTotal.Inc()
			s.logger.Warn("payment signature rejected",
				zap.String("transaction_id", tx.ID),
				zap.String("order_id", tx.Gateway.OrderID),
				zap.String("payment_id", paymentID),
				zap.Bool("security_event", true))
			return nil, domain.ErrSignatureMismatch
		}

		// Claim the transaction. Exactly one concurrent caller wins this
		// conditional write; losers reread and exit above.
		tx.Status = domain.TxProcessing
		tx.Gateway.PaymentID = paymentID
		tx.Gateway.Signature = signature
		err := s.txRepo.UpdateIfVersion(ctx, tx)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
		if attempt+1 >= maxRetries {
			return nil, domain.ErrContention
		}
		tx, err = s.txRepo.GetByID(ctx, tx.ID)
		if err != nil {
			return nil, err
		}
	}

	// From here the claim is ours. If the effect fails the transaction
	// stays processing: discoverable by reconciliation, never silently
	// lost and never falsely completed.
	if err := s.applyEffect(ctx, tx); err != nil {
		s.logger.Error("settlement effect failed, transaction left processing",
			zap.String("transaction_id", tx.ID),
			zap.String("kind", string(tx.Kind)),
			zap.Error(err))
		return nil, err
	}

	if err := s.complete(ctx, tx.ID); err != nil {
		return nil, err
	}
	metrics.SettlementsTotal.WithLabelValues(string(tx.Kind)).Inc()

	done, err := s.txRepo.GetByID(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("transaction settled",
		zap.String("transaction_id", done.ID),
		zap.String("kind", string(done.Kind)),
		zap.Int64("amount", done.Amount),
		zap.Int64("seller_amount", done.SellerAmount))
	return done, nil
}

func (s *Service) applyEffect(ctx context.Context, tx *domain.Transaction) error {
	switch tx.Kind {
	case domain.KindPromotion:
		if tx.ListingID == nil || tx.Data.Promotion == nil {
			return domain.Invalid("promotion", "missing listing or payload")
		}
		until := time.Now().AddDate(0, 0, tx.Data.Promotion.DurationDays)
		return s.listings.SetBoost(ctx, *tx.ListingID, tx.Data.Promotion.BoostValue, until)

	case domain.KindTransactionFee:
		if tx.ListingID == nil {
			return domain.Invalid("transaction_fee", "missing listing")
		}
		if _, err := s.wallets.Credit(ctx, tx.SellerID, tx.SellerAmount, "listing sale", tx.ID); err != nil {
			return err
		}
		return s.listings.MarkSold(ctx, *tx.ListingID)

	case domain.KindEscrow:
		// Funds were blocked in the buyer's wallet at intent creation.
		// Release and debit happen in one wallet write so the hold can
		// never be raced away between the two.
		if _, err := s.wallets.ConsumeBlocked(ctx, tx.BuyerID, tx.Amount, "escrow settled", tx.ID); err != nil {
			return err
		}
		_, err := s.wallets.Credit(ctx, tx.SellerID, tx.SellerAmount, "escrow payout", tx.ID)
		return err

	case domain.KindSubscription:
		// Self-referential: the payment is platform revenue, no wallet
		// movement and no listing change.
		return nil

	case domain.KindWithdrawal:
		// Generated internally already completed; the debit was the
		// settlement.
		return nil
	}
	return domain.Invalid("kind", "unknown transaction kind "+string(tx.Kind))
}

func (s *Service) complete(ctx context.Context, txID string) error {
	return s.updateWithRetry(ctx, txID, func(t *domain.Transaction) error {
		if t.Status == domain.TxCompleted {
			return nil
		}
		if !t.Status.CanTransition(domain.TxCompleted) {
			return domain.ErrInvalidStateTransition
		}
		now := time.Now()
		t.Status = domain.TxCompleted
		t.CompletedAt = &now
		return nil
	})
}

// Refund reverses a completed transaction's financial effect. The listing
// state is left alone; whether a sold listing goes back up is a business
// decision outside this service.
func (s *Service) Refund(ctx context.Context, txID string, amount *int64, reason string) (*provider.Refund, error) {
	tx, err := s.txRepo.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.TxCompleted {
		return nil, domain.ErrInvalidStateTransition
	}

	refundAmount := tx.Amount
	if amount != nil {
		if *amount <= 0 || *amount > tx.Amount {
			return nil, domain.ErrRefundAmountTooLarge
		}
		refundAmount = *amount
	}

	// Reverse the seller credit first. If the seller already withdrew the
	// funds this fails with InsufficientBalance and nothing has changed.
	sellerDebit := int64(0)
	switch tx.Kind {
	case domain.KindTransactionFee, domain.KindEscrow:
		sellerDebit = refundAmount
		if sellerDebit > tx.SellerAmount {
			sellerDebit = tx.SellerAmount
		}
		if _, err := s.wallets.Debit(ctx, tx.SellerID, sellerDebit, "refund reversal", tx.ID); err != nil {
			return nil, err
		}
	}

	rf, err := s.gateway.Refund(ctx, tx.Gateway.PaymentID, refundAmount, reason)
	if err != nil {
		// Compensate the debit so the wallet matches reality.
		if sellerDebit > 0 {
			if _, creditErr := s.wallets.Credit(ctx, tx.SellerID, sellerDebit, "refund reversal rollback", tx.ID); creditErr != nil {
				s.logger.Error("refund rollback credit failed, wallet needs manual review",
					zap.String("transaction_id", tx.ID),
					zap.Error(creditErr))
			}
		}
		return nil, err
	}

	if err := s.updateWithRetry(ctx, tx.ID, func(t *domain.Transaction) error {
		if t.Status == domain.TxRefunded {
			return nil
		}
		if !t.Status.CanTransition(domain.TxRefunded) {
			return domain.ErrInvalidStateTransition
		}
		now := time.Now()
		t.Status = domain.TxRefunded
		t.RefundedAt = &now
		return nil
	}); err != nil {
		return nil, err
	}
	metrics.RefundsTotal.Inc()

	s.logger.Info("transaction refunded",
		zap.String("transaction_id", tx.ID),
		zap.Int64("refund_amount", refundAmount),
		zap.String("reason", reason))
	return rf, nil
}

// MarkRefundedFromGateway records a refund the gateway initiated on its
// side (refund.created webhook). No gateway call, just the state change
// and the wallet reversal.
func (s *Service) MarkRefundedFromGateway(ctx context.Context, paymentID string, amount int64) error {
	tx, err := s.findByPaymentID(ctx, paymentID)
	if err != nil {
		return err
	}
	if tx.Status == domain.TxRefunded {
		return nil
	}
	if tx.Status != domain.TxCompleted {
		return domain.ErrInvalidStateTransition
	}

	switch tx.Kind {
	case domain.KindTransactionFee, domain.KindEscrow:
		sellerDebit := amount
		if sellerDebit > tx.SellerAmount {
			sellerDebit = tx.SellerAmount
		}
		if _, err := s.wallets.Debit(ctx, tx.SellerID, sellerDebit, "gateway refund reversal", tx.ID); err != nil {
			return err
		}
	}

	return s.updateWithRetry(ctx, tx.ID, func(t *domain.Transaction) error {
		if t.Status == domain.TxRefunded {
			return nil
		}
		if !t.Status.CanTransition(domain.TxRefunded) {
			return domain.ErrInvalidStateTransition
		}
		now := time.Now()
		t.Status = domain.TxRefunded
		t.RefundedAt = &now
		return nil
	})
}

// ResolveEscrow is the manual dispute resolution path. Release pays the
// seller as a normal settlement would; return refunds the buyer by
// unblocking the held funds. Dispute resolution is the only path allowed
// to refund an escrow that never completed.
func (s *Service) ResolveEscrow(ctx context.Context, txID string, releaseToSeller bool) error {
	tx, err := s.txRepo.GetByID(ctx, txID)
	if err != nil {
		return err
	}
	if tx.Kind != domain.KindEscrow {
		return domain.Invalid("kind", "not an escrow transaction")
	}
	if tx.Status != domain.TxPending && tx.Status != domain.TxProcessing {
		return domain.ErrInvalidStateTransition
	}
	if tx.Data.Escrow == nil || !tx.Data.Escrow.Disputed {
		return domain.Invalid("escrow", "transaction is not disputed")
	}

	if releaseToSeller {
		if err := s.applyEffect(ctx, tx); err != nil {
			return err
		}
		return s.complete(ctx, tx.ID)
	}

	if _, err := s.wallets.UnblockAmount(ctx, tx.BuyerID, tx.Amount, "escrow returned", tx.ID); err != nil {
		return err
	}
	return s.updateWithRetry(ctx, tx.ID, func(t *domain.Transaction) error {
		now := time.Now()
		t.Status = domain.TxRefunded
		t.RefundedAt = &now
		return nil
	})
}

func (s *Service) flagForReview(ctx context.Context, txID, conflictingPaymentID string) {
	s.logger.Error("payment id mismatch on settled transaction, flagging for review",
		zap.String("transaction_id", txID),
		zap.String("conflicting_payment_id", conflictingPaymentID),
		zap.Bool("security_event", true))
	if err := s.updateWithRetry(ctx, txID, func(t *domain.Transaction) error {
		t.ReviewFlag = true
		return nil
	}); err != nil {
		s.logger.Error("could not persist review flag",
			zap.String("transaction_id", txID),
			zap.Error(err))
	}
}

func (s *Service) findByPaymentID(ctx context.Context, paymentID string) (*domain.Transaction, error) {
	// Refund webhooks identify the payment, not the order. The payment id
	// lives inside the gateway jsonb, so reuse the order lookup's index
	// pattern via a fetch of the payment's order from the gateway.
	p, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return s.txRepo.GetByOrderID(ctx, p.OrderID)
}

func (s *Service) updateWithRetry(ctx context.Context, txID string, fn func(t *domain.Transaction) error) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		tx, err := s.txRepo.GetByID(ctx, txID)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			return err
		}
		err = s.txRepo.UpdateIfVersion(ctx, tx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
	}
	return domain.ErrContention
}
