package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/xrp_wallet/internal/account"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type addAccountRequest struct {
	Address string `json:"address"`
	Seed    string `json:"seed"`
	Label   string `json:"label"`
}

type selectRequest struct {
	Address string `json:"address"`
}

// Accounts lists the known accounts.
func (h *Handler) Accounts(c *fiber.Ctx) error {
	accounts := h.service.Accounts()
	out := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, viewOf(a))
	}
	return c.Status(http.StatusOK).JSON(out)
}

// AddAccount imports an account.
func (h *Handler) AddAccount(c *fiber.Ctx) error {
	var req addAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	a := account.Account{Address: req.Address, Seed: req.Seed, Label: req.Label}
	if err := h.service.AddAccount(c.UserContext(), a); err != nil {
		switch {
		case errors.Is(err, ErrInvalidAccount):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, account.ErrDuplicateAccount):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(viewOf(a))
}

// RemoveAccount deletes an account by address.
func (h *Handler) RemoveAccount(c *fiber.Ctx) error {
	if err := h.service.RemoveAccount(c.UserContext(), c.Params("address")); err != nil {
		if errors.Is(err, ErrUnknownAccount) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

// Select changes the active account and returns the new state.
func (h *Handler) Select(c *fiber.Ctx) error {
	var req selectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.SelectWallet(c.UserContext(), req.Address); err != nil {
		if errors.Is(err, ErrUnknownAccount) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(h.service.State())
}

// State returns the selected account, balance, transactions and reserve.
func (h *Handler) State(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(h.service.State())
}

// RefreshBalance resynchronizes the balance.
func (h *Handler) RefreshBalance(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(h.service.RefreshBalance(c.UserContext()))
}

// RefreshTransactions resynchronizes the transaction history.
func (h *Handler) RefreshTransactions(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(h.service.RefreshTransactions(c.UserContext()))
}
