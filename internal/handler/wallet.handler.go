package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
	"github.com/ankit6686510/buy-sell-sub001/internal/middleware"
	walletuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/wallet"
	withdrawaluc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/withdrawal"
	"github.com/ankit6686510/buy-sell-sub001/pkg/response"
)

type WalletHandler struct {
	wallets     *walletuc.Service
	withdrawals *withdrawaluc.Service
	logger      *zap.Logger
}

func NewWalletHandler(wallets *walletuc.Service, withdrawals *withdrawaluc.Service, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{wallets: wallets, withdrawals: withdrawals, logger: logger}
}

// walletView is the read model exposed to clients. Payout destinations
// never appear here.
type walletView struct {
	Balance          int64                `json:"balance"`
	AvailableBalance int64                `json:"available_balance"`
	PendingAmount    int64                `json:"pending_amount"`
	BlockedAmount    int64                `json:"blocked_amount"`
	TotalEarnings    int64                `json:"total_earnings"`
	TotalWithdrawals int64                `json:"total_withdrawals"`
	MinWithdrawal    int64                `json:"min_withdrawal"`
	Limits           domain.WalletLimits  `json:"limits"`
	KYCStatus        domain.KYCStatus     `json:"kyc_status"`
	RecentEntries    []domain.LedgerEntry `json:"recent_entries"`
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.wallets.GetOrCreate(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, walletView{
		Balance:          wallet.Balance,
		AvailableBalance: wallet.AvailableBalance(),
		PendingAmount:    wallet.PendingAmount,
		BlockedAmount:    wallet.BlockedAmount,
		TotalEarnings:    wallet.TotalEarnings,
		TotalWithdrawals: wallet.TotalWithdrawals,
		MinWithdrawal:    wallet.MinWithdrawal,
		Limits:           wallet.Limits,
		KYCStatus:        wallet.KYCStatus,
		RecentEntries:    wallet.RecentEntries,
	})
}

type withdrawRequest struct {
	Amount  int64  `json:"amount"`
	Method  string `json:"method"`
	Details string `json:"details,omitempty"`
}

func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.withdrawals.Request(r.Context(), middleware.UserID(r.Context()), req.Amount, req.Method, req.Details)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":         "completed",
		"transaction_id": result.TransactionID,
		"new_balance":    result.NewBalance,
	})
}

// PreviewWithdrawal runs the refusal checks without moving money.
func (h *WalletHandler) PreviewWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	refusal, err := h.withdrawals.Preview(r.Context(), middleware.UserID(r.Context()), req.Amount)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if refusal != nil {
		writeError(w, h.logger, refusal)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{"allowed": true})
}
