package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ankit6686510/buy-sell-sub001/internal/handler"
	"github.com/ankit6686510/buy-sell-sub001/internal/middleware"
)

type Handlers struct {
	Payments *handler.PaymentHandler
	Wallet   *handler.WalletHandler
	Webhooks *handler.WebhookHandler
	WS       *handler.WSHandler
}

func New(h Handlers, rdb *redis.Client, jwtSecret string) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Razorpay-Signature"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// ---- Public endpoints ----
	r.Group(func(pub chi.Router) {
		pub.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		pub.Handle("/metrics", promhttp.Handler())
		pub.Post("/webhooks/razorpay", h.Webhooks.Handle)
	})

	// ---- Authenticated endpoints ----
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.Require(jwtSecret))

		pr.Post("/payments/intent", h.Payments.CreateIntent)
		pr.Post("/payments/confirm", h.Payments.Confirm)
		pr.Get("/payments/{id}", h.Payments.Get)

		// Refunds debit arbitrary seller wallets and reconciliation sees
		// every transaction; operator-only.
		pr.Group(func(adm chi.Router) {
			adm.Use(middleware.RequireRole(middleware.RoleAdmin))
			adm.Post("/payments/{id}/refund", h.Payments.Refund)
			adm.Get("/payments/reconciliation/stuck", h.Payments.Stuck)
		})

		pr.Get("/wallet", h.Wallet.Get)
		pr.Get("/wallet/ws", h.WS.Stream)
		pr.Post("/wallet/withdraw/preview", h.Wallet.PreviewWithdrawal)

		// Withdrawals move real money out; keep the rate tight.
		pr.Group(func(wd chi.Router) {
			wd.Use(middleware.RateLimiter(rdb, 10, time.Minute, 10*time.Minute, "withdraw"))
			wd.Post("/wallet/withdraw", h.Wallet.Withdraw)
		})
	})

	return r
}
