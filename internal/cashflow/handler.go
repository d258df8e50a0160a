package cashflow

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/cajaflow/cajaflow/internal/ledger"
)

// Handler exposes the cash box HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a cashflow HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Balance returns the total balance of the box.
func (h *Handler) Balance(c *fiber.Ctx) error {
	balance, err := h.service.Balance(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(BalanceResponse{TotalBalance: balance.InexactFloat64()})
}

// AddMovement records a manual credit or debit.
func (h *Handler) AddMovement(c *fiber.Ctx) error {
	var req addMovementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Faltan datos: se requiere monto y tipo")
	}
	result, err := h.service.AddMovement(c.UserContext(), req.Amount.String(), req.Type)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(MutationResponse{
		Message:    "Movimiento registrado con éxito",
		NewBalance: result.NewBalance.InexactFloat64(),
	})
}

// AddFromScan credits the box with one scanned banknote.
func (h *Handler) AddFromScan(c *fiber.Ctx) error {
	var req addFromScanRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Falta el monto")
	}
	result, err := h.service.AddFromScan(c.UserContext(), req.Amount.String())
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(MutationResponse{
		Message:    fmt.Sprintf("Billete de $%s agregado a la caja", result.Movement.Amount.StringFixed(0)),
		NewBalance: result.NewBalance.InexactFloat64(),
	})
}

// Movements lists the movement history, newest first.
func (h *Handler) Movements(c *fiber.Ctx) error {
	movements, err := h.service.Movements(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}
	views := make([]MovementView, 0, len(movements))
	for _, m := range movements {
		views = append(views, toMovementView(m))
	}
	return c.Status(http.StatusOK).JSON(views)
}

// AmendMovement changes the amount of an existing movement.
func (h *Handler) AmendMovement(c *fiber.Ctx) error {
	id := c.Params("id")
	var req amendMovementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Falta el nuevo monto")
	}
	movement, err := h.service.AmendMovement(c.UserContext(), id, req.Amount.String())
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(toMovementView(movement))
}

// Denominations lists the banknote counts by ascending value.
func (h *Handler) Denominations(c *fiber.Ctx) error {
	denominations, err := h.service.Denominations(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}
	views := make([]DenominationView, 0, len(denominations))
	for _, d := range denominations {
		views = append(views, DenominationView{Value: d.Value, Quantity: d.Quantity})
	}
	return c.Status(http.StatusOK).JSON(views)
}

// toHTTPError maps the ledger error taxonomy onto client-facing responses.
// Anything outside the taxonomy is a storage failure and surfaces as a 500.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrMovementNotFound):
		return fiber.NewError(http.StatusNotFound, "Movimiento no encontrado")
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, "Monto inválido")
	case errors.Is(err, ledger.ErrInvalidType):
		return fiber.NewError(http.StatusBadRequest, "Tipo de movimiento inválido")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "Saldo insuficiente")
	case errors.Is(err, ledger.ErrUnknownDenomination):
		return fiber.NewError(http.StatusBadRequest, "La denominación no es válida")
	case errors.Is(err, ledger.ErrNegativeBalance):
		return fiber.NewError(http.StatusBadRequest, "La modificación resulta en saldo negativo")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
