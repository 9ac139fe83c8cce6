package payments

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Handler exposes payment endpoints.
type Handler struct {
	submitter *Submitter
}

// NewHandler constructs a payment handler.
func NewHandler(submitter *Submitter) *Handler {
	return &Handler{submitter: submitter}
}

type sendRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Destination    string          `json:"destination"`
	DestinationTag string          `json:"destination_tag"`
}

// Send submits an XRP payment from the selected account.
func (h *Handler) Send(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.submitter.SendXRP(c.UserContext(), Request{
		Amount:         req.Amount,
		Destination:    req.Destination,
		DestinationTag: req.DestinationTag,
	})
	if err != nil {
		var subErr *SubmissionError
		switch {
		case errors.Is(err, ErrNoAccountSelected):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrInvalidPayment):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.As(err, &subErr):
			return c.Status(http.StatusBadGateway).JSON(fiber.Map{
				"error":  subErr.Error(),
				"step":   subErr.Step,
				"hash":   subErr.Hash,
				"result": subErr.Result,
			})
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(res)
}
