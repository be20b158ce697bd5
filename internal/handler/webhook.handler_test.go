package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
	"github.com/ankit6686510/buy-sell-sub001/internal/provider/fake"
	"github.com/ankit6686510/buy-sell-sub001/internal/repository/memory"
	settlementuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/settlement"
	transactionuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/transaction"
	walletuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/wallet"
	webhookuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/webhook"
)

func newWebhookHandler(t *testing.T) (*WebhookHandler, *memory.TransactionRepo, *fake.Gateway) {
	t.Helper()
	logger := zap.NewNop()
	txRepo := memory.NewTransactionRepo()
	gw := fake.New()
	listings := memory.NewListingRepo()
	listings.Put(&domain.Listing{ID: "lst_1", SellerID: "seller_1", Status: domain.ListingActive})
	wallets := walletuc.New(memory.NewWalletRepo(), walletuc.NewNotifier(logger), logger)
	settlements := settlementuc.New(txRepo, wallets, listings, gw, logger)
	transactions := transactionuc.New(txRepo, gw, wallets, logger)
	ingestion := webhookuc.New(gw, memory.NewWebhookEventRepo(), settlements, transactions, logger)
	return NewWebhookHandler(ingestion, logger), txRepo, gw
}

func seedFeeTx(t *testing.T, txRepo *memory.TransactionRepo, txID, orderID string) {
	t.Helper()
	listingID := "lst_1"
	tx := &domain.Transaction{
		ID:          txID,
		BuyerID:     "buyer_1",
		SellerID:    "seller_1",
		ListingID:   &listingID,
		Kind:        domain.KindTransactionFee,
		Currency:    domain.SupportedCurrency,
		Status:      domain.TxPending,
		Gateway:     domain.GatewayRef{OrderID: orderID},
		Data:        domain.KindData{Fee: &domain.FeeData{ListingID: listingID}},
		InitiatedAt: time.Now(),
	}
	require.NoError(t, tx.SetAmounts(100000, 3000))
	require.NoError(t, txRepo.Create(context.Background(), tx))
}

func postWebhook(h *WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", bytes.NewReader(body))
	req.Header.Set(signatureHeader, signature)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestWebhookHandlerAcknowledgesCapture(t *testing.T) {
	h, txRepo, gw := newWebhookHandler(t)
	seedFeeTx(t, txRepo, "txn_1", "order_1")

	body := []byte(`{"id":"evt_1","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1"}}}}`)
	rec := postWebhook(h, body, gw.SignWebhook(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"acknowledged":true`)

	tx, err := txRepo.GetByID(context.Background(), "txn_1")
	require.NoError(t, err)
	assert.Equal(t, domain.TxCompleted, tx.Status)
}

func TestWebhookHandlerAcknowledgesBadSignature(t *testing.T) {
	h, txRepo, _ := newWebhookHandler(t)
	seedFeeTx(t, txRepo, "txn_1", "order_1")

	body := []byte(`{"id":"evt_1","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1"}}}}`)
	rec := postWebhook(h, body, "forged")

	// Forged deliveries are acked so the sender learns nothing; the event
	// is dropped before it touches any state.
	assert.Equal(t, http.StatusOK, rec.Code)

	tx, err := txRepo.GetByID(context.Background(), "txn_1")
	require.NoError(t, err)
	assert.Equal(t, domain.TxPending, tx.Status)
}

func TestWebhookHandlerAcknowledgesUnknownTransaction(t *testing.T) {
	h, _, gw := newWebhookHandler(t)

	body := []byte(`{"id":"evt_1","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_missing"}}}}`)
	rec := postWebhook(h, body, gw.SignWebhook(body))

	// Redelivery cannot resolve an unknown order; ack it.
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookHandlerRequestsRedeliveryOnContention(t *testing.T) {
	h, txRepo, gw := newWebhookHandler(t)
	seedFeeTx(t, txRepo, "txn_1", "order_1")

	// A transaction stuck in processing makes settlement report contention,
	// which is the one case the gateway should retry.
	tx, err := txRepo.GetByID(context.Background(), "txn_1")
	require.NoError(t, err)
	tx.Status = domain.TxProcessing
	require.NoError(t, txRepo.UpdateIfVersion(context.Background(), tx))

	body := []byte(`{"id":"evt_1","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1"}}}}`)
	rec := postWebhook(h, body, gw.SignWebhook(body))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// Once the claim clears, the redelivered event settles it.
	tx, err = txRepo.GetByID(context.Background(), "txn_1")
	require.NoError(t, err)
	tx.Status = domain.TxPending
	require.NoError(t, txRepo.UpdateIfVersion(context.Background(), tx))

	rec = postWebhook(h, body, gw.SignWebhook(body))
	assert.Equal(t, http.StatusOK, rec.Code)

	done, err := txRepo.GetByID(context.Background(), "txn_1")
	require.NoError(t, err)
	assert.Equal(t, domain.TxCompleted, done.Status)
}
