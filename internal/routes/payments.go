package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/xrp_wallet/internal/middleware"
)

// RegisterPaymentRoutes wires payment submission. With Redis available the
// endpoint requires an Idempotency-Key and is rate limited per sending account.
func RegisterPaymentRoutes(r fiber.Router, d Deps) {
	if d.Cache == nil {
		r.Post("/payments", d.Payments.Send)
		return
	}
	limit := middleware.RateLimit(d.Cache, "payment", d.Cfg.PaymentRateLimit, func(c *fiber.Ctx) string {
		if d.Selection == nil {
			return ""
		}
		if acct, ok := d.Selection.Selected(); ok {
			return acct.Address
		}
		return ""
	})
	r.Post("/payments",
		limit,
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
		d.Payments.Send,
	)
}
