package wallet

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ankit6686510/buy-sell-sub001/internal/domain"
)

type wsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Notifier pushes balance updates to connected websocket clients after
// every wallet mutation.
type Notifier struct {
	clients map[string]map[*websocket.Conn]bool
	mu      sync.Mutex
	logger  *zap.Logger
}

func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{
		clients: make(map[string]map[*websocket.Conn]bool),
		logger:  logger,
	}
}

func (n *Notifier) RegisterConnection(userID string, conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.clients[userID] == nil {
		n.clients[userID] = make(map[*websocket.Conn]bool)
	}
	n.clients[userID][conn] = true
}

func (n *Notifier) UnregisterConnection(userID string, conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if conns, ok := n.clients[userID]; ok {
		delete(conns, conn)
		conn.Close()
		if len(conns) == 0 {
			delete(n.clients, userID)
		}
	}
}

func (n *Notifier) NotifyBalance(w *domain.Wallet) {
	n.mu.Lock()
	defer n.mu.Unlock()

	message := wsMessage{
		Type: "balance_update",
		Data: map[string]interface{}{
			"user_id":           w.UserID,
			"balance":           w.Balance,
			"available_balance": w.AvailableBalance(),
			"blocked_amount":    w.BlockedAmount,
			"pending_amount":    w.PendingAmount,
		},
	}

	payload, _ := json.Marshal(message)

	for conn := range n.clients[w.UserID] {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			n.logger.Warn("dropping stale wallet websocket",
				zap.String("user_id", w.UserID),
				zap.Error(err))
			conn.Close()
			delete(n.clients[w.UserID], conn)
		}
	}
}
