package handler

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
	webhookuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/webhook"
	"github.com/ankit6686510/buy-sell-sub001/pkg/response"
)

const signatureHeader = "X-Razorpay-Signature"

type WebhookHandler struct {
	ingestion *webhookuc.Service
	logger    *zap.Logger
}

func NewWebhookHandler(ingestion *webhookuc.Service, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{ingestion: ingestion, logger: logger}
}

// Handle acknowledges with 200 whenever redelivery cannot change the
// outcome (bad signatures, unknown event types, terminal-state conflicts)
// so the gateway does not build a retry storm. Only infrastructure
// failures and settlement contention return 5xx, which is the gateway's
// cue to redeliver.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	err = h.ingestion.Ingest(r.Context(), body, r.Header.Get(signatureHeader))
	if err != nil {
		if webhookuc.Retryable(err) {
			h.logger.Error("webhook processing failed, requesting redelivery",
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "event not processed, redeliver")
			return
		}
		if !errors.Is(err, domain.ErrSignatureMismatch) {
			h.logger.Info("webhook event dropped",
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err))
		}
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{"acknowledged": true})
}
