package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailableBalance(t *testing.T) {
	w := Wallet{Balance: 100000, BlockedAmount: 30000}
	assert.Equal(t, int64(70000), w.AvailableBalance())
}

func TestPushEntryCapsRecentEntries(t *testing.T) {
	var w Wallet
	for i := 0; i < RecentEntryCap+5; i++ {
		w.PushEntry(LedgerEntry{Type: EntryCredit, Amount: int64(i), Description: fmt.Sprintf("entry %d", i)})
	}
	require.Len(t, w.RecentEntries, RecentEntryCap)
	// Newest first.
	assert.Equal(t, int64(RecentEntryCap+4), w.RecentEntries[0].Amount)
	assert.Equal(t, int64(5), w.RecentEntries[RecentEntryCap-1].Amount)
}

func TestResetWindows(t *testing.T) {
	day1 := time.Date(2026, time.March, 30, 15, 0, 0, 0, time.UTC)
	w := Wallet{
		DailyWithdrawn:   DailyWindow{Amount: 40000, WindowStart: day1},
		MonthlyWithdrawn: MonthlyWindow{Amount: 90000, WindowMonth: time.March, WindowYear: 2026},
	}

	// Same day, nothing moves.
	w.ResetWindows(day1.Add(2 * time.Hour))
	assert.Equal(t, int64(40000), w.DailyWithdrawn.Amount)
	assert.Equal(t, int64(90000), w.MonthlyWithdrawn.Amount)

	// Next day, same month: daily resets, monthly holds.
	w.ResetWindows(day1.AddDate(0, 0, 1))
	assert.Equal(t, int64(0), w.DailyWithdrawn.Amount)
	assert.Equal(t, int64(90000), w.MonthlyWithdrawn.Amount)

	// Month boundary resets both.
	w.DailyWithdrawn.Amount = 15000
	w.ResetWindows(time.Date(2026, time.April, 1, 0, 30, 0, 0, time.UTC))
	assert.Equal(t, int64(0), w.DailyWithdrawn.Amount)
	assert.Equal(t, int64(0), w.MonthlyWithdrawn.Amount)
	assert.Equal(t, time.April, w.MonthlyWithdrawn.WindowMonth)
	assert.Equal(t, 2026, w.MonthlyWithdrawn.WindowYear)
}

func TestCheckInvariants(t *testing.T) {
	ok := Wallet{Balance: 50000, BlockedAmount: 20000, Limits: WalletLimits{MaxBalance: 100000}}
	require.NoError(t, ok.CheckInvariants())

	negative := Wallet{Balance: -1}
	assert.ErrorIs(t, negative.CheckInvariants(), ErrInsufficientBalance)

	overMax := Wallet{Balance: 200000, Limits: WalletLimits{MaxBalance: 100000}}
	assert.ErrorIs(t, overMax.CheckInvariants(), ErrMaxBalanceExceeded)

	overBlocked := Wallet{Balance: 1000, BlockedAmount: 2000}
	assert.ErrorIs(t, overBlocked.CheckInvariants(), ErrInsufficientBalance)
}

func TestListingResponseRate(t *testing.T) {
	assert.Equal(t, float64(0), (&Listing{Views: 0, QuotesCount: 5}).ResponseRate())
	assert.InDelta(t, 12.5, (&Listing{Views: 200, QuotesCount: 25}).ResponseRate(), 0.0001)
}
