package server

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ankit6686510/buy-sell-sub001/internal/config"
	"github.com/ankit6686510/buy-sell-sub001/internal/handler"
	"github.com/ankit6686510/buy-sell-sub001/internal/provider/razorpay"
	"github.com/ankit6686510/buy-sell-sub001/internal/repository"
	"github.com/ankit6686510/buy-sell-sub001/internal/router"
	settlementuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/settlement"
	transactionuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/transaction"
	walletuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/wallet"
	webhookuc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/webhook"
	withdrawaluc "github.com/ankit6686510/buy-sell-sub001/internal/usecase/withdrawal"
)

type Server struct {
	httpServer *http.Server
	db         *pgxpool.Pool
}

func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	db, err := config.ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	rdb := config.ConnectRedis(cfg)

	gateway := razorpay.NewClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret)

	txRepo := repository.NewTransactionRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	listingRepo := repository.NewListingRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)

	notifier := walletuc.NewNotifier(logger)
	wallets := walletuc.New(walletRepo, notifier, logger)
	transactions := transactionuc.New(txRepo, gateway, wallets, logger)
	settlements := settlementuc.New(txRepo, wallets, listingRepo, gateway, logger)
	withdrawals := withdrawaluc.New(wallets, transactions, logger)
	ingestion := webhookuc.New(gateway, eventRepo, settlements, transactions, logger)

	r := router.New(router.Handlers{
		Payments: handler.NewPaymentHandler(transactions, settlements, logger),
		Wallet:   handler.NewWalletHandler(wallets, withdrawals, logger),
		Webhooks: handler.NewWebhookHandler(ingestion, logger),
		WS:       handler.NewWSHandler(wallets, notifier, logger),
	}, rdb, cfg.JWTSecret)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
		db: db,
	}, nil
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	defer s.db.Close()
	return s.httpServer.Shutdown(ctx)
}
