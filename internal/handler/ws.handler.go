package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ankit6686510/buy-sell-sub001/internal/middleware"
	walletuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/wallet"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type WSHandler struct {
	wallets  *walletuc.Service
	notifier *walletuc.Notifier
	logger   *zap.Logger
}

func NewWSHandler(wallets *walletuc.Service, notifier *walletuc.Notifier, logger *zap.Logger) *WSHandler {
	return &WSHandler{wallets: wallets, notifier: notifier, logger: logger}
}

// Stream upgrades the connection and pushes the current wallet state,
// then leaves the connection registered for balance updates until the
// client goes away.
func (h *WSHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}

	h.notifier.RegisterConnection(userID, conn)

	if wallet, err := h.wallets.GetOrCreate(r.Context(), userID); err == nil {
		h.notifier.NotifyBalance(wallet)
	}

	go func() {
		defer h.notifier.UnregisterConnection(userID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
