package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/xrp_wallet/internal/account"
	"github.com/congo-pay/xrp_wallet/internal/config"
	"github.com/congo-pay/xrp_wallet/internal/ledger"
	"github.com/congo-pay/xrp_wallet/internal/live"
	"github.com/congo-pay/xrp_wallet/internal/notification"
	"github.com/congo-pay/xrp_wallet/internal/payments"
	"github.com/congo-pay/xrp_wallet/internal/routes"
	"github.com/congo-pay/xrp_wallet/internal/storage"
	"github.com/congo-pay/xrp_wallet/internal/wallet"
	"github.com/congo-pay/xrp_wallet/internal/xrpl"
)

// Infra holds the connections opened by main. Store is required; DB and
// Cache may be nil.
type Infra struct {
	Store storage.KV
	DB    *pgxpool.Pool
	Cache *redis.Client
}

// Server wraps the Fiber application and the wallet it serves.
type Server struct {
	app        *fiber.App
	cfg        config.Config
	wallet     *wallet.Service
	controller *live.Controller
}

// New wires the wallet against the node at cfg.LedgerURL and delegates
// route wiring to routes.Setup. Nothing touches the network until Start.
func New(cfg config.Config, infra Infra, logger *slog.Logger) (*Server, error) {
	if infra.Store == nil {
		return nil, errors.New("server: account store backend is required")
	}

	session := xrpl.NewClient(cfg.LedgerURL, logger)
	dialer := xrpl.NewDialer(cfg.LedgerURL, logger)

	broker := notification.NewBroker()
	notifier := notification.Multi{notification.NewLoggerNotifier(logger), broker}
	controller := live.NewController(session, ledger.NewNodeLedger(dialer, logger), notifier, logger, live.Options{
		SubscribeRetries: cfg.SubscribeRetries,
		SubscribeBackoff: cfg.SubscribeBackoff,
	})

	walletSvc := wallet.NewService(account.NewStore(infra.Store, logger), controller, logger)
	var signer payments.Signer = payments.LocalSigner{}
	if cfg.Signer == config.SignerNode {
		logger.Warn("signing on the node: account seeds are sent to it", "url", cfg.LedgerURL)
		signer = payments.NodeSigner{}
	}
	submitter := payments.NewSubmitter(dialer, controller, controller, signer, logger, cfg.SubmitPollInterval)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	err := routes.Setup(app, routes.Deps{
		Cfg:       cfg,
		DB:        infra.DB,
		Cache:     infra.Cache,
		Logger:    logger,
		Session:   session,
		Wallet:    wallet.NewHandler(walletSvc),
		Payments:  payments.NewHandler(submitter),
		Selection: controller,
		Broker:    broker,
	})
	if err != nil {
		_ = controller.Close(context.Background())
		return nil, err
	}

	return &Server{app: app, cfg: cfg, wallet: walletSvc, controller: controller}, nil
}

// Start loads persisted accounts and resumes the last selection.
func (s *Server) Start(ctx context.Context) error {
	return s.wallet.Start(ctx)
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown stops accepting requests, then tears down the live subscription.
func (s *Server) Shutdown(ctx context.Context) error {
	httpErr := s.app.ShutdownWithContext(ctx)
	return errors.Join(httpErr, s.controller.Close(ctx))
}
