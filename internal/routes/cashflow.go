package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cajaflow/cajaflow/internal/cashflow"
)

// RegisterCashflowRoutes wires the cash box ledger endpoints.
func RegisterCashflowRoutes(r fiber.Router, h *cashflow.Handler) {
	r.Get("/balance", h.Balance)
	r.Post("/movement", h.AddMovement)
	r.Post("/add_from_scan", h.AddFromScan)
	r.Get("/movements", h.Movements)
	r.Put("/movements/:id", h.AmendMovement)
	r.Get("/denominations", h.Denominations)
}
