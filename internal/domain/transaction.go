package domain

import "time"

type TxKind string

const (
	KindPromotion      TxKind = "promotion"
	KindTransactionFee TxKind = "transaction_fee"
	KindSubscription   TxKind = "subscription"
	KindEscrow         TxKind = "escrow"
	KindWithdrawal     TxKind = "withdrawal"
)

type TxStatus string

const (
	TxPending    TxStatus = "pending"
	TxProcessing TxStatus = "processing"
	TxCompleted  TxStatus = "completed"
	TxFailed     TxStatus = "failed"
	TxRefunded   TxStatus = "refunded"
)

// CanTransition encodes the transaction state machine. Only
// pending/processing can complete or fail; only completed can refund.
// Everything else is rejected, which is what makes duplicate settlement
// delivery safe.
func (s TxStatus) CanTransition(to TxStatus) bool {
	switch to {
	case TxProcessing:
		return s == TxPending
	case TxCompleted:
		return s == TxPending || s == TxProcessing
	case TxFailed:
		return s == TxPending || s == TxProcessing
	case TxRefunded:
		return s == TxCompleted
	}
	return false
}

func (s TxStatus) Terminal() bool {
	return s == TxCompleted || s == TxFailed || s == TxRefunded
}

// GatewayRef holds the external gateway identifiers for a transaction.
// PaymentID is written once, on first successful settlement, and is
// immutable afterwards.
type GatewayRef struct {
	OrderID   string `json:"order_id,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
	Signature string `json:"signature,omitempty"`
	Receipt   string `json:"receipt,omitempty"`
}

// Kind-specific payloads. KindData is a tagged union: exactly one of the
// pointers matching Transaction.Kind is non-nil.
type PromotionData struct {
	DurationDays int       `json:"duration_days"`
	BoostValue   int       `json:"boost_value"`
	BoostedUntil time.Time `json:"boosted_until,omitempty"`
}

type EscrowData struct {
	ReleaseAfter *time.Time `json:"release_after,omitempty"`
	Disputed     bool       `json:"disputed,omitempty"`
}

type SubscriptionData struct {
	Plan       string `json:"plan"`
	PeriodDays int    `json:"period_days"`
}

type WithdrawalData struct {
	Method  string `json:"method"`
	Details string `json:"details,omitempty"`
}

type FeeData struct {
	ListingID string `json:"listing_id"`
}

type KindData struct {
	Promotion    *PromotionData    `json:"promotion,omitempty"`
	Escrow       *EscrowData       `json:"escrow,omitempty"`
	Subscription *SubscriptionData `json:"subscription,omitempty"`
	Withdrawal   *WithdrawalData   `json:"withdrawal,omitempty"`
	Fee          *FeeData          `json:"fee,omitempty"`
}

// Validate checks that the payload variant matches the kind and that no
// foreign variant is set, so a promotion transaction can never carry
// escrow fields.
func (d KindData) Validate(kind TxKind) error {
	variants := map[TxKind]bool{
		KindPromotion:      d.Promotion != nil,
		KindEscrow:         d.Escrow != nil,
		KindSubscription:   d.Subscription != nil,
		KindWithdrawal:     d.Withdrawal != nil,
		KindTransactionFee: d.Fee != nil,
	}
	if !variants[kind] {
		return Invalid("kind_data", "missing payload for kind "+string(kind))
	}
	for k, set := range variants {
		if set && k != kind {
			return Invalid("kind_data", "payload for "+string(k)+" not allowed on kind "+string(kind))
		}
	}
	return nil
}

// Transaction is one monetary event between a buyer and a seller, tied to
// zero or one listing. Amounts are int64 minor units (paise). Records are
// never deleted; they are the financial audit trail.
type Transaction struct {
	ID           string     `json:"id"`
	BuyerID      string     `json:"buyer_id"`
	SellerID     string     `json:"seller_id"`
	ListingID    *string    `json:"listing_id,omitempty"`
	Kind         TxKind     `json:"kind"`
	Amount       int64      `json:"amount"`
	PlatformFee  int64      `json:"platform_fee"`
	SellerAmount int64      `json:"seller_amount"`
	Currency     string     `json:"currency"`
	Status       TxStatus   `json:"status"`
	Gateway      GatewayRef `json:"gateway"`
	Data         KindData   `json:"data"`
	FailReason   *string    `json:"fail_reason,omitempty"`
	ReviewFlag   bool       `json:"review_flag,omitempty"`
	InitiatedAt  time.Time  `json:"initiated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	FailedAt     *time.Time `json:"failed_at,omitempty"`
	RefundedAt   *time.Time `json:"refunded_at,omitempty"`
	Version      int64      `json:"-"`
}

// SetAmounts is the only way amount and fee are written. SellerAmount is
// always recomputed, never trusted from input.
func (t *Transaction) SetAmounts(amount, platformFee int64) error {
	if amount <= 0 {
		return Invalid("amount", "must be positive")
	}
	if platformFee < 0 || platformFee > amount {
		return Invalid("platform_fee", "must be between 0 and amount")
	}
	t.Amount = amount
	t.PlatformFee = platformFee
	t.SellerAmount = amount - platformFee
	return nil
}

const SupportedCurrency = "INR"
