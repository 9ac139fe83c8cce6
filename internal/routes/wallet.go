package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/xrp_wallet/internal/wallet"
)

// RegisterWalletRoutes wires account management, selection and sync endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/accounts", h.Accounts)
	r.Post("/accounts", h.AddAccount)
	r.Delete("/accounts/:address", h.RemoveAccount)
	r.Put("/selection", h.Select)
	r.Get("/state", h.State)
	r.Post("/refresh/balance", h.RefreshBalance)
	r.Post("/refresh/transactions", h.RefreshTransactions)
}
