package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/xrp_wallet/internal/config"
	"github.com/congo-pay/xrp_wallet/internal/middleware"
	"github.com/congo-pay/xrp_wallet/internal/notification"
	"github.com/congo-pay/xrp_wallet/internal/payments"
	"github.com/congo-pay/xrp_wallet/internal/wallet"
	"github.com/congo-pay/xrp_wallet/internal/xrpl"
)

const (
	healthPath        = "/healthz"
	notificationsPath = "/api/v1/ws/notifications"
)

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// are optional; without Cache payments are neither idempotent nor rate limited.
type Deps struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Cache     *redis.Client
	Logger    *slog.Logger
	Session   xrpl.Session
	Wallet    *wallet.Handler
	Payments  *payments.Handler
	Selection payments.Selection
	Broker    *notification.Broker
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Wallet == nil || d.Payments == nil {
		return fmt.Errorf("wallet and payment handlers are required")
	}
	if !isDev(d.Cfg.AppEnv) && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger, healthPath, notificationsPath))

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDOf(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterWalletRoutes(api, d.Wallet)
	RegisterPaymentRoutes(api, d)
	if d.Broker != nil {
		RegisterNotificationRoutes(api, d.Broker, d.Logger)
	}
	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
