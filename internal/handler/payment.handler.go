package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
	"github.com/ankit6686510/buy-sell-sub001/internal/middleware"
	settlementuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/settlement"
	transactionuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/transaction"
	"github.com/ankit6686510/buy-sell-sub001/pkg/response"
)

type PaymentHandler struct {
	transactions *transactionuc.Service
	settlements  *settlementuc.Service
	logger       *zap.Logger
}

func NewPaymentHandler(transactions *transactionuc.Service, settlements *settlementuc.Service, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{transactions: transactions, settlements: settlements, logger: logger}
}

type createIntentRequest struct {
	Kind        domain.TxKind   `json:"kind"`
	SellerID    string          `json:"seller_id"`
	ListingID   *string         `json:"listing_id,omitempty"`
	Amount      int64           `json:"amount"`
	PlatformFee int64           `json:"platform_fee"`
	KindData    domain.KindData `json:"kind_data"`
}

func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	buyerID := middleware.UserID(r.Context())
	sellerID := req.SellerID
	if sellerID == "" {
		// Self-referential kinds (promotion, subscription) pay the
		// platform; buyer and seller are the same party.
		sellerID = buyerID
	}

	intent, err := h.transactions.CreateIntent(r.Context(), transactionuc.IntentParams{
		Kind:        req.Kind,
		BuyerID:     buyerID,
		SellerID:    sellerID,
		ListingID:   req.ListingID,
		Amount:      req.Amount,
		PlatformFee: req.PlatformFee,
		Data:        req.KindData,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, map[string]interface{}{
		"transaction_id": intent.Transaction.ID,
		"gateway_order":  intent.Order,
	})
}

type confirmRequest struct {
	TransactionID string `json:"transaction_id"`
	PaymentID     string `json:"razorpay_payment_id"`
	Signature     string `json:"razorpay_signature"`
}

// Confirm is the synchronous settlement path. "Already completed" is
// success: the response always carries the transaction's current status,
// whether or not this call caused the transition.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TransactionID == "" || req.PaymentID == "" || req.Signature == "" {
		response.Error(w, http.StatusBadRequest, "transaction_id, razorpay_payment_id and razorpay_signature are required")
		return
	}

	tx, err := h.settlements.Settle(r.Context(), req.TransactionID, req.PaymentID, req.Signature)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"transaction_id": tx.ID,
		"status":         tx.Status,
	})
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tx, err := h.transactions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// Only the transaction's parties may read it. Not-found rather than
	// forbidden, so outsiders cannot tell whether an id exists.
	caller := middleware.UserID(r.Context())
	if caller != tx.BuyerID && caller != tx.SellerID {
		writeError(w, h.logger, domain.ErrTransactionNotFound)
		return
	}
	response.JSON(w, http.StatusOK, tx)
}

type refundRequest struct {
	Amount *int64 `json:"amount,omitempty"`
	Reason string `json:"reason"`
}

func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rf, err := h.settlements.Refund(r.Context(), chi.URLParam(r, "id"), req.Amount, req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"refund_id": rf.ID,
		"status":    rf.Status,
	})
}

// Stuck reports processing transactions older than the cutoff; the
// reconciliation view for settlements whose effect never landed.
func (h *PaymentHandler) Stuck(w http.ResponseWriter, r *http.Request) {
	olderThan := 15 * time.Minute
	if v := r.URL.Query().Get("older_than"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "invalid older_than duration")
			return
		}
		olderThan = d
	}

	stuck, err := h.transactions.ListStuck(r.Context(), olderThan)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"count":        len(stuck),
		"transactions": stuck,
	})
}
