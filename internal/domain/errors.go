package domain

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors shared across usecases.
var (
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrListingNotFound         = errors.New("listing not found")
	ErrInvalidStateTransition  = errors.New("invalid transaction state transition")
	ErrInsufficientBalance     = errors.New("insufficient available balance")
	ErrSignatureMismatch       = errors.New("signature mismatch")
	ErrPaymentIDMismatch       = errors.New("payment id differs from settled payment id")
	ErrContention              = errors.New("too many concurrent updates, retry")
	ErrVersionConflict         = errors.New("version conflict")
	ErrMaxBalanceExceeded      = errors.New("wallet max balance exceeded")
	ErrDuplicateWebhookEvent   = errors.New("webhook event already processed")
	ErrRefundAmountTooLarge    = errors.New("refund amount exceeds transaction amount")
	ErrUnsupportedWebhookEvent = errors.New("unrecognized webhook event type")
)

// ValidationError rejects a malformed request before any state change.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// GatewayError wraps any network or protocol failure from the payment
// gateway. Transient; retry policy belongs to the caller.
type GatewayError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s failed (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("gateway %s failed (status %d)", e.Op, e.StatusCode)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Withdrawal refusal reasons. All applicable reasons are returned at once so
// the caller can present a complete diagnostic.
const (
	RefuseInsufficientBalance = "insufficient_balance"
	RefuseDailyLimitExceeded  = "daily_limit_exceeded"
	RefuseMonthlyLimit        = "monthly_limit_exceeded"
	RefuseWalletInactive      = "wallet_inactive"
	RefuseKYCNotVerified      = "kyc_not_verified"
	RefuseBelowMinimum        = "below_minimum_amount"
)

// WithdrawalRefusedError carries the full reason set plus the remaining
// daily/monthly headroom at evaluation time.
type WithdrawalRefusedError struct {
	Reasons          []string
	DailyRemaining   int64
	MonthlyRemaining int64
}

func (e *WithdrawalRefusedError) Error() string {
	return fmt.Sprintf("withdrawal refused: %v", e.Reasons)
}

func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code // e.g. 23505 for unique_violation
	}
	return "unknown"
}

// IsUniqueViolation reports whether err is a postgres unique constraint
// violation, used by create-if-absent paths.
func IsUniqueViolation(err error) bool {
	return ParsePGErrorCode(err) == "23505"
}
