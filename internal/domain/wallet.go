package domain

import "time"

type KYCStatus string

const (
	KYCPending   KYCStatus = "pending"
	KYCSubmitted KYCStatus = "submitted"
	KYCVerified  KYCStatus = "verified"
	KYCRejected  KYCStatus = "rejected"
)

type EntryType string

const (
	EntryCredit     EntryType = "credit"
	EntryDebit      EntryType = "debit"
	EntryBlocked    EntryType = "blocked"
	EntryUnblocked  EntryType = "unblocked"
	EntryWithdrawal EntryType = "withdrawal"
)

// LedgerEntry is one row of the wallet's bounded recent-activity cache.
// The authoritative history is the transactions table.
type LedgerEntry struct {
	Type           EntryType `json:"type"`
	Description    string    `json:"description,omitempty"`
	Amount         int64     `json:"amount"`
	BalanceAfter   int64     `json:"balance_after"`
	RefTransaction string    `json:"ref_transaction,omitempty"`
	At             time.Time `json:"at"`
}

// RecentEntryCap bounds the embedded ledger cache, newest first.
const RecentEntryCap = 20

type WalletLimits struct {
	DailyWithdrawalLimit   int64 `json:"daily_withdrawal_limit"`
	MonthlyWithdrawalLimit int64 `json:"monthly_withdrawal_limit"`
	MaxBalance             int64 `json:"max_balance"`
}

// DailyWindow and MonthlyWindow are rolling withdrawal counters. They
// self-reset when the wall clock crosses the window boundary; the reset
// check runs on every withdrawal evaluation, there is no background job.
type DailyWindow struct {
	Amount      int64     `json:"amount"`
	WindowStart time.Time `json:"window_start"`
}

type MonthlyWindow struct {
	Amount      int64      `json:"amount"`
	WindowMonth time.Month `json:"window_month"`
	WindowYear  int        `json:"window_year"`
}

// Wallet is the sole owner of a user's spendable balance. One per user,
// created lazily, never deleted while the account exists. Mutated only
// through the wallet usecase primitives.
type Wallet struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	Balance          int64         `json:"balance"`
	PendingAmount    int64         `json:"pending_amount"`
	BlockedAmount    int64         `json:"blocked_amount"`
	TotalEarnings    int64         `json:"total_earnings"`
	TotalWithdrawals int64         `json:"total_withdrawals"`
	RecentEntries    []LedgerEntry `json:"recent_entries"`
	MinWithdrawal    int64         `json:"min_withdrawal"`
	Limits           WalletLimits  `json:"limits"`
	DailyWithdrawn   DailyWindow   `json:"daily_withdrawn"`
	MonthlyWithdrawn MonthlyWindow `json:"monthly_withdrawn"`
	KYCStatus        KYCStatus     `json:"kyc_status"`
	Active           bool          `json:"active"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	Version          int64         `json:"-"`
}

func (w *Wallet) AvailableBalance() int64 {
	return w.Balance - w.BlockedAmount
}

// PushEntry prepends a ledger entry, dropping the oldest once the cache
// is full.
func (w *Wallet) PushEntry(e LedgerEntry) {
	w.RecentEntries = append([]LedgerEntry{e}, w.RecentEntries...)
	if len(w.RecentEntries) > RecentEntryCap {
		w.RecentEntries = w.RecentEntries[:RecentEntryCap]
	}
}

// ResetWindows zeroes the rolling counters whose window has lapsed as of
// now. Must be called before every withdrawal evaluation.
func (w *Wallet) ResetWindows(now time.Time) {
	ny, nm, nd := now.Date()
	wy, wm, wd := w.DailyWithdrawn.WindowStart.Date()
	if ny != wy || nm != wm || nd != wd {
		w.DailyWithdrawn = DailyWindow{WindowStart: time.Date(ny, nm, nd, 0, 0, 0, 0, now.Location())}
	}
	if w.MonthlyWithdrawn.WindowYear != ny || w.MonthlyWithdrawn.WindowMonth != nm {
		w.MonthlyWithdrawn = MonthlyWindow{WindowMonth: nm, WindowYear: ny}
	}
}

// CheckInvariants verifies the balance invariants that must hold after
// every mutation.
func (w *Wallet) CheckInvariants() error {
	if w.Balance < 0 {
		return ErrInsufficientBalance
	}
	if w.Limits.MaxBalance > 0 && w.Balance > w.Limits.MaxBalance {
		return ErrMaxBalanceExceeded
	}
	if w.BlockedAmount < 0 || w.BlockedAmount > w.Balance {
		return ErrInsufficientBalance
	}
	return nil
}
