package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
	"github.com/ankit6686510/buy-sell-sub001/internal/repository/memory"
)

func newTestService(t *testing.T) (*Service, *memory.WalletRepo) {
	t.Helper()
	repo := memory.NewWalletRepo()
	logger := zap.NewNop()
	return New(repo, NewNotifier(logger), logger), repo
}

func seedVerified(t *testing.T, repo *memory.WalletRepo, userID string, balance int64) {
	t.Helper()
	now := time.Now()
	w := &domain.Wallet{
		ID:            "wlt_" + userID,
		UserID:        userID,
		Balance:       balance,
		MinWithdrawal: DefaultMinWithdrawal,
		Limits: domain.WalletLimits{
			DailyWithdrawalLimit:   DefaultDailyLimit,
			MonthlyWithdrawalLimit: DefaultMonthlyLimit,
			MaxBalance:             DefaultMaxBalance,
		},
		DailyWithdrawn:   domain.DailyWindow{WindowStart: now},
		MonthlyWithdrawn: domain.MonthlyWindow{WindowMonth: now.Month(), WindowYear: now.Year()},
		KYCStatus:        domain.KYCVerified,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, repo.Create(context.Background(), w))
}

func TestGetOrCreateIsLazyAndIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	w, err := svc.GetOrCreate(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "user_1", w.UserID)
	assert.Equal(t, int64(0), w.Balance)
	assert.Equal(t, domain.KYCPending, w.KYCStatus)
	assert.True(t, w.Active)
	assert.Equal(t, int64(DefaultDailyLimit), w.Limits.DailyWithdrawalLimit)

	again, err := svc.GetOrCreate(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, w.ID, again.ID)
}

func TestCreditAndDebit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	w, err := svc.Credit(ctx, "user_1", 50000, "listing sale", "txn_1")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), w.Balance)
	assert.Equal(t, int64(50000), w.TotalEarnings)
	require.Len(t, w.RecentEntries, 1)
	assert.Equal(t, domain.EntryCredit, w.RecentEntries[0].Type)
	assert.Equal(t, "txn_1", w.RecentEntries[0].RefTransaction)

	w, err = svc.Debit(ctx, "user_1", 20000, "refund reversal", "txn_2")
	require.NoError(t, err)
	assert.Equal(t, int64(30000), w.Balance)
	assert.Equal(t, domain.EntryDebit, w.RecentEntries[0].Type)
	assert.Equal(t, int64(30000), w.RecentEntries[0].BalanceAfter)
}

func TestDebitRefusesOverdraw(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Credit(ctx, "user_1", 10000, "seed", "txn_1")
	require.NoError(t, err)

	_, err = svc.Debit(ctx, "user_1", 10001, "too much", "txn_2")
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	w, err := svc.GetOrCreate(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), w.Balance)
}

func TestBlockedFundsAreNotSpendable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Credit(ctx, "user_1", 100000, "seed", "txn_1")
	require.NoError(t, err)

	w, err := svc.BlockAmount(ctx, "user_1", 60000, "escrow hold", "txn_2")
	require.NoError(t, err)
	assert.Equal(t, int64(100000), w.Balance)
	assert.Equal(t, int64(60000), w.BlockedAmount)
	assert.Equal(t, int64(40000), w.AvailableBalance())

	// Only the unblocked part is spendable.
	_, err = svc.Debit(ctx, "user_1", 50000, "overdraw", "txn_3")
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// Cannot block more than is available either.
	_, err = svc.BlockAmount(ctx, "user_1", 50000, "second hold", "txn_4")
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	w, err = svc.UnblockAmount(ctx, "user_1", 60000, "escrow released", "txn_2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), w.BlockedAmount)

	_, err = svc.Debit(ctx, "user_1", 100000, "all of it", "txn_5")
	require.NoError(t, err)
}

func TestConsumeBlockedReleasesAndDebitsTogether(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Credit(ctx, "user_1", 150000, "seed", "txn_1")
	require.NoError(t, err)
	_, err = svc.BlockAmount(ctx, "user_1", 150000, "hold", "txn_2")
	require.NoError(t, err)

	w, err := svc.ConsumeBlocked(ctx, "user_1", 150000, "hold consumed", "txn_2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), w.Balance)
	assert.Equal(t, int64(0), w.BlockedAmount)

	// Both movements appear in the ledger, debit newest.
	require.GreaterOrEqual(t, len(w.RecentEntries), 2)
	assert.Equal(t, domain.EntryDebit, w.RecentEntries[0].Type)
	assert.Equal(t, domain.EntryUnblocked, w.RecentEntries[1].Type)
	assert.Equal(t, int64(0), w.RecentEntries[0].BalanceAfter)
	assert.Equal(t, int64(150000), w.RecentEntries[1].BalanceAfter)

	_, err = svc.ConsumeBlocked(ctx, "user_1", 1, "nothing held", "txn_3")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestConsumeBlockedNeverExposesReservedFunds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Credit(ctx, "user_1", 150000, "seed", "txn_1")
	require.NoError(t, err)
	_, err = svc.BlockAmount(ctx, "user_1", 150000, "hold", "txn_2")
	require.NoError(t, err)

	// A concurrent spender hammers the wallet while the hold is consumed.
	// Available balance is 0 before the consume and 0 after, so every
	// attempt must be refused; there is no in-between state to hit.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			_, err := svc.Debit(ctx, "user_1", 150000, "raced spend", "txn_race")
			if err == nil {
				t.Error("debit succeeded against reserved funds")
				return
			}
			if !errors.Is(err, domain.ErrInsufficientBalance) && !errors.Is(err, domain.ErrContention) {
				t.Errorf("unexpected debit error: %v", err)
				return
			}
		}
	}()

	for {
		_, err := svc.ConsumeBlocked(ctx, "user_1", 150000, "hold consumed", "txn_2")
		if err == nil {
			break
		}
		require.ErrorIs(t, err, domain.ErrContention)
	}
	close(done)
	wg.Wait()

	w, err := svc.GetOrCreate(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), w.Balance)
	assert.Equal(t, int64(0), w.BlockedAmount)
}

func TestUnblockMoreThanBlockedIsRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Credit(ctx, "user_1", 50000, "seed", "txn_1")
	require.NoError(t, err)
	_, err = svc.BlockAmount(ctx, "user_1", 20000, "hold", "txn_2")
	require.NoError(t, err)

	_, err = svc.UnblockAmount(ctx, "user_1", 30000, "too much", "txn_2")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestMaxBalanceEnforced(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedVerified(t, repo, "user_1", DefaultMaxBalance-1000)

	_, err := svc.Credit(ctx, "user_1", 2000, "overflow", "txn_1")
	assert.ErrorIs(t, err, domain.ErrMaxBalanceExceeded)

	w, err := svc.GetOrCreate(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultMaxBalance-1000), w.Balance)
}

func TestConcurrentCreditsAllLand(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, "user_1")
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, err := svc.Credit(ctx, "user_1", 1000, "concurrent credit", "txn_c")
				if err == nil {
					return
				}
				if !errors.Is(err, domain.ErrContention) {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected credit error: %v", err)
	}

	w, err := svc.GetOrCreate(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, int64(workers*1000), w.Balance)
}

func TestWithdrawalRefusalCollectsAllReasons(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	// Unverified, inactive wallet, empty balance, below minimum amount.
	now := time.Now()
	w := &domain.Wallet{
		ID:            "wlt_user_1",
		UserID:        "user_1",
		MinWithdrawal: DefaultMinWithdrawal,
		Limits: domain.WalletLimits{
			DailyWithdrawalLimit:   DefaultDailyLimit,
			MonthlyWithdrawalLimit: DefaultMonthlyLimit,
			MaxBalance:             DefaultMaxBalance,
		},
		DailyWithdrawn:   domain.DailyWindow{WindowStart: now},
		MonthlyWithdrawn: domain.MonthlyWindow{WindowMonth: now.Month(), WindowYear: now.Year()},
		KYCStatus:        domain.KYCPending,
		Active:           false,
	}
	require.NoError(t, repo.Create(ctx, w))

	_, refusal, err := svc.CanWithdraw(ctx, "user_1", 5000)
	require.NoError(t, err)
	require.NotNil(t, refusal)
	assert.ElementsMatch(t, []string{
		domain.RefuseBelowMinimum,
		domain.RefuseInsufficientBalance,
		domain.RefuseWalletInactive,
		domain.RefuseKYCNotVerified,
	}, refusal.Reasons)
	assert.Equal(t, int64(DefaultDailyLimit), refusal.DailyRemaining)
	assert.Equal(t, int64(DefaultMonthlyLimit), refusal.MonthlyRemaining)
}

func TestWithdrawalDailyLimitAndHeadroom(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedVerified(t, repo, "user_1", DefaultDailyLimit*2)

	// Exhaust most of the daily window.
	_, err := svc.ApplyWithdrawal(ctx, "user_1", DefaultDailyLimit-10000, "txn_1")
	require.NoError(t, err)

	_, refusal, err := svc.CanWithdraw(ctx, "user_1", 20000)
	require.NoError(t, err)
	require.NotNil(t, refusal)
	assert.Contains(t, refusal.Reasons, domain.RefuseDailyLimitExceeded)
	assert.Equal(t, int64(10000), refusal.DailyRemaining)

	// Exactly the remaining headroom still goes through.
	w, err := svc.ApplyWithdrawal(ctx, "user_1", 10000, "txn_2")
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultDailyLimit), w.DailyWithdrawn.Amount)
	assert.Equal(t, int64(DefaultDailyLimit), w.MonthlyWithdrawn.Amount)
}

func TestWithdrawalWindowsRollOver(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedVerified(t, repo, "user_1", DefaultMonthlyLimit*2)

	clock := time.Date(2026, time.May, 31, 10, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return clock })

	_, err := svc.ApplyWithdrawal(ctx, "user_1", DefaultDailyLimit, "txn_1")
	require.NoError(t, err)

	// Daily window is full.
	_, refusal, err := svc.CanWithdraw(ctx, "user_1", DefaultMinWithdrawal)
	require.NoError(t, err)
	require.NotNil(t, refusal)
	assert.Contains(t, refusal.Reasons, domain.RefuseDailyLimitExceeded)

	// Next day (and next month): both windows reset, withdrawal succeeds.
	clock = time.Date(2026, time.June, 1, 0, 5, 0, 0, time.UTC)
	w, err := svc.ApplyWithdrawal(ctx, "user_1", DefaultDailyLimit, "txn_2")
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultDailyLimit), w.DailyWithdrawn.Amount)
	assert.Equal(t, int64(DefaultDailyLimit), w.MonthlyWithdrawn.Amount)
	assert.Equal(t, time.June, w.MonthlyWithdrawn.WindowMonth)
	assert.Equal(t, int64(DefaultDailyLimit*2), w.TotalWithdrawals)
}

func TestApplyWithdrawalWritesLedgerEntry(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedVerified(t, repo, "user_1", 100000)

	w, err := svc.ApplyWithdrawal(ctx, "user_1", 40000, "txn_w1")
	require.NoError(t, err)
	assert.Equal(t, int64(60000), w.Balance)
	assert.Equal(t, int64(40000), w.TotalWithdrawals)
	require.NotEmpty(t, w.RecentEntries)
	assert.Equal(t, domain.EntryWithdrawal, w.RecentEntries[0].Type)
	assert.Equal(t, "txn_w1", w.RecentEntries[0].RefTransaction)
}

func TestApplyWithdrawalRefusalLeavesWalletUntouched(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedVerified(t, repo, "user_1", 100000)

	_, err := svc.ApplyWithdrawal(ctx, "user_1", 200000, "txn_1")
	var refusal *domain.WithdrawalRefusedError
	require.ErrorAs(t, err, &refusal)
	assert.Contains(t, refusal.Reasons, domain.RefuseInsufficientBalance)

	w, err := svc.GetOrCreate(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, int64(100000), w.Balance)
	assert.Equal(t, int64(0), w.TotalWithdrawals)
	assert.Empty(t, w.RecentEntries)
}
