package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cajaflow/cajaflow/internal/classifier"
)

// RegisterPredictionRoutes wires the banknote classification endpoint.
func RegisterPredictionRoutes(r fiber.Router, h *classifier.Handler, rateLimit fiber.Handler) {
	r.Post("/predict", rateLimit, h.Predict)
}
