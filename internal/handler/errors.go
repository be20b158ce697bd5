package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
	"github.com/ankit6686510/buy-sell-sub001/pkg/response"
)

// writeError maps domain errors onto HTTP statuses. Refusals carry their
// full diagnostic payload; everything unexpected is a 500 with the detail
// kept in the logs.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var validation *domain.ValidationError
	var refused *domain.WithdrawalRefusedError
	var gateway *domain.GatewayError

	switch {
	case errors.As(err, &validation):
		response.Error(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &refused):
		response.JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"refused": true,
			"reasons": refused.Reasons,
			"limits": map[string]int64{
				"daily_remaining":   refused.DailyRemaining,
				"monthly_remaining": refused.MonthlyRemaining,
			},
		})
	case errors.Is(err, domain.ErrInsufficientBalance):
		response.Error(w, http.StatusUnprocessableEntity, "insufficient available balance")
	case errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrWalletNotFound),
		errors.Is(err, domain.ErrListingNotFound):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidStateTransition),
		errors.Is(err, domain.ErrPaymentIDMismatch):
		response.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrContention):
		response.Error(w, http.StatusConflict, "transaction is being settled, recheck its status")
	case errors.Is(err, domain.ErrSignatureMismatch):
		response.Error(w, http.StatusBadRequest, "signature verification failed")
	case errors.Is(err, domain.ErrRefundAmountTooLarge):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &gateway):
		logger.Error("gateway failure", zap.Error(err))
		response.Error(w, http.StatusBadGateway, "payment gateway unavailable, retry later")
	default:
		logger.Error("unhandled error", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
