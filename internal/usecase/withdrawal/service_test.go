package withdrawal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
	"github.com/ankit6686510/buy-sell-sub001/internal/provider/fake"
	"github.com/ankit6686510/buy-sell-sub001/internal/repository/memory"
	transactionuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/transaction"
	walletuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/wallet"
)

type harness struct {
	svc        *Service
	txRepo     *memory.TransactionRepo
	walletRepo *memory.WalletRepo
	wallets    *walletuc.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()
	h := &harness{
		txRepo:     memory.NewTransactionRepo(),
		walletRepo: memory.NewWalletRepo(),
	}
	h.wallets = walletuc.New(h.walletRepo, walletuc.NewNotifier(logger), logger)
	transactions := transactionuc.New(h.txRepo, fake.New(), h.wallets, logger)
	h.svc = New(h.wallets, transactions, logger)
	return h
}

func (h *harness) seedVerified(t *testing.T, userID string, balance int64) {
	t.Helper()
	now := time.Now()
	require.NoError(t, h.walletRepo.Create(context.Background(), &domain.Wallet{
		ID:            "wlt_" + userID,
		UserID:        userID,
		Balance:       balance,
		MinWithdrawal: walletuc.DefaultMinWithdrawal,
		Limits: domain.WalletLimits{
			DailyWithdrawalLimit:   walletuc.DefaultDailyLimit,
			MonthlyWithdrawalLimit: walletuc.DefaultMonthlyLimit,
			MaxBalance:             walletuc.DefaultMaxBalance,
		},
		DailyWithdrawn:   domain.DailyWindow{WindowStart: now},
		MonthlyWithdrawn: domain.MonthlyWindow{WindowMonth: now.Month(), WindowYear: now.Year()},
		KYCStatus:        domain.KYCVerified,
		Active:           true,
	}))
}

func TestRequestExecutesAndRecordsAudit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedVerified(t, "user_1", 100000)

	res, err := h.svc.Request(ctx, "user_1", 40000, "upi", "user@bank")
	require.NoError(t, err)
	assert.Equal(t, int64(60000), res.NewBalance)
	require.NotEmpty(t, res.TransactionID)

	// The audit transaction exists, completed, and shares its id with the
	// wallet ledger entry.
	tx, err := h.txRepo.GetByID(ctx, res.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.KindWithdrawal, tx.Kind)
	assert.Equal(t, domain.TxCompleted, tx.Status)
	assert.Equal(t, int64(40000), tx.Amount)
	require.NotNil(t, tx.Data.Withdrawal)
	assert.Equal(t, "upi", tx.Data.Withdrawal.Method)

	w, err := h.wallets.GetOrCreate(ctx, "user_1")
	require.NoError(t, err)
	require.NotEmpty(t, w.RecentEntries)
	assert.Equal(t, res.TransactionID, w.RecentEntries[0].RefTransaction)
}

func TestRequestRefusedLeavesNoRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// A lazily created wallet has KYC pending and no balance; the request
	// is refused and no audit transaction is written.
	_, err := h.wallets.Credit(ctx, "user_1", 100000, "seed", "txn_seed")
	require.NoError(t, err)

	_, err = h.svc.Request(ctx, "user_1", 40000, "upi", "user@bank")
	var refusal *domain.WithdrawalRefusedError
	require.ErrorAs(t, err, &refusal)
	assert.Contains(t, refusal.Reasons, domain.RefuseKYCNotVerified)

	txs, err := h.txRepo.ListByUser(ctx, "user_1", 10)
	require.NoError(t, err)
	assert.Empty(t, txs)

	w, err := h.wallets.GetOrCreate(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, int64(100000), w.Balance)
}

func TestRequestValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var verr *domain.ValidationError
	_, err := h.svc.Request(ctx, "user_1", 0, "upi", "")
	assert.ErrorAs(t, err, &verr)

	_, err = h.svc.Request(ctx, "user_1", 40000, "", "")
	assert.ErrorAs(t, err, &verr)
}

func TestPreviewReportsRefusalWithoutMutating(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	refusal, err := h.svc.Preview(ctx, "user_1", 5000)
	require.NoError(t, err)
	require.NotNil(t, refusal)
	assert.Contains(t, refusal.Reasons, domain.RefuseBelowMinimum)
	assert.Contains(t, refusal.Reasons, domain.RefuseInsufficientBalance)

	w, err := h.wallets.GetOrCreate(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), w.Balance)
	assert.Empty(t, w.RecentEntries)
}
